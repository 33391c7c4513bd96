// Package present renders user-facing reply text for the vending flow:
// the catalog listing, the provisional acknowledgment, and the final order
// outcome. All functions are pure; the router decides when each text is
// sent and the platform adapter decides how.
package present

import (
	"fmt"
	"strings"

	"github.com/smmvend/vendbot/internal/catalog"
	"github.com/smmvend/vendbot/internal/smm"
)

// Catalog renders the vending machine listing shown with the product
// buttons. One line per entry, in catalog order.
func Catalog(entries []catalog.Entry) string {
	var b strings.Builder
	b.WriteString("🛒 **SMM Vending Machine**\n")
	b.WriteString("Pick a product below and enter the order URL.\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s — $%s per %d\n", e.Label, e.UnitPrice.StringFixed(2), smm.DefaultQuantity)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Acknowledgment is the provisional "working" text shown while the order
// call is in flight. Every acknowledgment must later be replaced exactly
// once by an Outcome.
func Acknowledgment() string {
	return "⏳ Placing your order..."
}

// Outcome renders the final reply for a finished order.
func Outcome(result smm.OrderResult) string {
	if result.Success() {
		return fmt.Sprintf("✅ Order placed!\nOrder ID: **%s**", result.OrderID)
	}
	return fmt.Sprintf("❌ Error: %s", result.Reason)
}

// FormTitle is the modal title for the URL form.
func FormTitle(entry catalog.Entry) string {
	return fmt.Sprintf("Order: %s", entry.Label)
}

// FormFieldLabel is the label of the single required URL field.
func FormFieldLabel() string {
	return "Enter the URL to boost"
}

// FormFieldPlaceholder hints at the expected URL shape.
func FormFieldPlaceholder() string {
	return "https://www.instagram.com/p/..."
}
