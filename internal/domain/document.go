package domain

// Document is one source message handed to the parsing schemes.
// Two documents are the same document iff their IDs are equal, even when
// a re-read produced a different body.
type Document struct {
	ID      string // source locator, the maildir file path for mail
	From    string
	Subject string
	Body    string
}

// Key returns the identity used to index dispatch results.
func (d Document) Key() string {
	return d.ID
}

// WithoutBody returns a copy with the body dropped, for handing documents to
// cleanup after parsing without keeping every mail body in memory.
func (d Document) WithoutBody() Document {
	d.Body = ""
	return d
}
