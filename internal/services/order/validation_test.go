package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"restaurant-system/internal/errs"
	"restaurant-system/internal/models"
)

func validLines() []models.OrderLine {
	return []models.OrderLine{
		{ItemID: 5, Quantity: 2, UnitPrice: decimal.RequireFromString("6.50")},
		{ItemID: 9, Quantity: 1, UnitPrice: decimal.RequireFromString("4.50")},
	}
}

func TestValidateCreateOrder(t *testing.T) {
	customer := models.Actor{ID: 7, Role: models.RoleCustomer, Name: "Alice"}
	cashPayment := models.PaymentInfo{Method: models.MethodCash, Amount: decimal.RequireFromString("17.50")}

	tests := []struct {
		name    string
		actor   models.Actor
		lines   []models.OrderLine
		payment models.PaymentInfo
		wantErr bool
	}{
		{
			name:    "valid cash order",
			actor:   customer,
			lines:   validLines(),
			payment: cashPayment,
			wantErr: false,
		},
		{
			name:  "valid card order",
			actor: models.Actor{ID: 3, Role: models.RoleStaff, Name: "Bob"},
			lines: validLines(),
			payment: models.PaymentInfo{
				Method:     models.MethodCard,
				Amount:     decimal.RequireFromString("17.50"),
				GatewayRef: "tok_abc123",
			},
			wantErr: false,
		},
		{
			name:    "missing actor id",
			actor:   models.Actor{ID: 0, Role: models.RoleCustomer},
			lines:   validLines(),
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "unknown role",
			actor:   models.Actor{ID: 7, Role: "manager"},
			lines:   validLines(),
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "empty items",
			actor:   customer,
			lines:   nil,
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "zero quantity",
			actor:   customer,
			lines:   []models.OrderLine{{ItemID: 5, Quantity: 0, UnitPrice: decimal.New(650, -2)}},
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "negative unit price",
			actor:   customer,
			lines:   []models.OrderLine{{ItemID: 5, Quantity: 1, UnitPrice: decimal.RequireFromString("-1.00")}},
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "missing item id",
			actor:   customer,
			lines:   []models.OrderLine{{ItemID: 0, Quantity: 1, UnitPrice: decimal.New(650, -2)}},
			payment: cashPayment,
			wantErr: true,
		},
		{
			name:    "unknown payment method",
			actor:   customer,
			lines:   validLines(),
			payment: models.PaymentInfo{Method: "cheque", Amount: decimal.New(10, 0)},
			wantErr: true,
		},
		{
			name:    "negative payment amount",
			actor:   customer,
			lines:   validLines(),
			payment: models.PaymentInfo{Method: models.MethodCash, Amount: decimal.RequireFromString("-5.00")},
			wantErr: true,
		},
		{
			name:    "card without gateway reference",
			actor:   customer,
			lines:   validLines(),
			payment: models.PaymentInfo{Method: models.MethodCard, Amount: decimal.New(10, 0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateOrder(tt.actor, tt.lines, tt.payment)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errs.IsValidation(err), "expected a validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
