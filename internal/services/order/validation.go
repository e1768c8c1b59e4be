package order

import (
	"fmt"

	"restaurant-system/internal/errs"
	"restaurant-system/internal/models"
)

const maxItemsPerOrder = 50

// ValidateCreateOrder checks a create-order request before any database
// statement runs.
func ValidateCreateOrder(actor models.Actor, lines []models.OrderLine, payment models.PaymentInfo) error {
	if actor.ID <= 0 {
		return errs.Validation("actor.id", "actor id is required")
	}
	if !actor.Role.Valid() {
		return errs.Validation("actor.role", fmt.Sprintf("unknown role %q", actor.Role))
	}

	if err := validateLines(lines); err != nil {
		return err
	}

	return validatePayment(payment)
}

func validateLines(lines []models.OrderLine) error {
	if len(lines) == 0 {
		return errs.Validation("items", "items cannot be empty")
	}
	if len(lines) > maxItemsPerOrder {
		return errs.Validation("items", fmt.Sprintf("a maximum of %d items is allowed", maxItemsPerOrder))
	}

	for i, ln := range lines {
		if ln.ItemID <= 0 {
			return errs.Validation(fmt.Sprintf("items[%d].item_id", i), "item id is required")
		}
		if ln.Quantity <= 0 {
			return errs.Validation(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than 0")
		}
		if ln.UnitPrice.IsNegative() {
			return errs.Validation(fmt.Sprintf("items[%d].unit_price", i), "unit price cannot be negative")
		}
	}
	return nil
}

func validatePayment(payment models.PaymentInfo) error {
	if !payment.Method.Valid() {
		return errs.Validation("payment.method", fmt.Sprintf("unknown payment method %q", payment.Method))
	}
	if payment.Amount.IsNegative() {
		return errs.Validation("payment.amount", "amount cannot be negative")
	}
	if payment.Method == models.MethodCard && payment.GatewayRef == "" {
		return errs.Validation("payment.gateway_ref", "gateway reference is required for card payments")
	}
	return nil
}
