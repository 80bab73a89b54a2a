// Package templates provides purchase receipt template
package templates

import "fmt"

type ReceiptEmailProps struct {
	Firstname    string
	ProductNames []string
	Total        float64
	MemberURL    string
}

func GetReceiptEmailContent(props ReceiptEmailProps) string {
	greeting := "Hello,"
	if props.Firstname != "" {
		greeting = fmt.Sprintf("Hello %s,", props.Firstname)
	}

	items := ""
	for _, name := range props.ProductNames {
		items += GetListItem(name)
	}

	content := GetParagraph(greeting) +
		GetParagraph("Thank you for your order. Here's what you purchased:") +
		fmt.Sprintf(`<ul style="margin: 0 0 16px 24px; padding: 0;">%s</ul>`, items) +
		GetParagraph(fmt.Sprintf("<strong>Total: $%.2f</strong>", props.Total))

	if props.MemberURL != "" {
		content += GetButton(ButtonProps{
			Text: "Access Your Materials",
			URL:  props.MemberURL,
		})
	}

	content += GetParagraph("A receipt for your payment is also available from our payment provider.")

	return content
}
