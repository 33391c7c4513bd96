// Package smm is the client for the SMM panel order API.
//
// The panel exposes a single endpoint that takes URL-encoded form fields
// (key, action, service, link, quantity) and answers with a small JSON
// object carrying either an order ID or an error message.
//
// # Usage
//
//	client := smm.NewClient(smm.Config{APIKey: key}, logger)
//	result := client.PlaceOrder(ctx, smm.NewOrderRequest("1", link))
//	if result.Success() {
//	    fmt.Println("order id:", result.OrderID)
//	} else {
//	    fmt.Println("failed:", result.Reason)
//	}
//
// PlaceOrder is fire-once: there are no retries and no idempotency key, so
// callers treat a connection failure as "outcome unknown".
package smm
