package scheme

import (
	"strings"
)

// buildGeminiPrompt renders the extraction instructions followed by the
// mail body.
func buildGeminiPrompt(body string, accounts, skips []string) string {
	var b strings.Builder

	b.WriteString("Parse the following email and list every purchase in it.\n\n")
	b.WriteString("For each purchase give:\n")
	b.WriteString("- \"datetime\": when the purchase happened, in UTC, RFC 3339 format.\n")
	b.WriteString("- \"subject\": the name of the item purchased or the place it was purchased at. Never use the subject of the email.\n")
	b.WriteString("- \"amount\": how much money was spent, as a negative number.\n")
	b.WriteString("- \"account\": the account from this list that fits the email best: " + quoteList(accounts) + ".\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Make every item independent. Do not create a header or summary object.\n")
	b.WriteString("- Do not create an item without an amount or a purchase date.\n")
	b.WriteString("- Change half-width Japanese characters in the subject to full-width, except spaces. Change full-width spaces to half-width spaces.\n")
	b.WriteString("- Remove suffixes such as \"/NFC\" from the subject and trim whitespace from both ends.\n")
	b.WriteString("- If the email is in Japanese and has no purchase time, assume 00:00:00 JST.\n")
	b.WriteString("- If the email is in Indonesian or English and has no purchase time, assume 00:00:00 WIB.\n")
	if len(skips) > 0 {
		b.WriteString("- Skip an entry if it has a subject or place of purchase that contains any of this: " + quoteList(skips) + ".\n")
	}
	b.WriteString("- Return an empty array if you can't parse the email or can't choose a suitable account from the list.\n\n")

	b.WriteString("This is the email:\n")
	b.WriteString(body)

	return b.String()
}

// quoteList renders values as 'a','b','c'.
func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ",")
}
