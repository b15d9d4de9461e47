package draft

// Field names one focusable input of the composition form. The focus order is
// an explicit transition table so keyboard navigation can be tested without
// any rendering layer.
type Field string

const (
	FieldCustomer        Field = "customer"
	FieldBillingAddress  Field = "billingAddress"
	FieldShippingAddress Field = "shippingAddress"
	FieldLocation        Field = "location"
	FieldItemProduct     Field = "itemProduct"
	FieldItemQuantity    Field = "itemQuantity"
	FieldItemUnitPrice   Field = "itemUnitPrice"
	FieldItemDiscount    Field = "itemDiscount"
	FieldServiceCharges  Field = "serviceCharges"
	FieldBuyBack         Field = "batteryBuyBack"
	FieldOverallDiscount Field = "overallDiscount"
	FieldNotes           Field = "notes"
	FieldSubmit          Field = "submit"
)

// Fields lists every focusable field in canonical order.
var Fields = []Field{
	FieldCustomer,
	FieldBillingAddress,
	FieldShippingAddress,
	FieldLocation,
	FieldItemProduct,
	FieldItemQuantity,
	FieldItemUnitPrice,
	FieldItemDiscount,
	FieldServiceCharges,
	FieldBuyBack,
	FieldOverallDiscount,
	FieldNotes,
	FieldSubmit,
}

var nextField = map[Field]Field{
	FieldCustomer:        FieldBillingAddress,
	FieldBillingAddress:  FieldShippingAddress,
	FieldShippingAddress: FieldLocation,
	FieldLocation:        FieldItemProduct,
	FieldItemProduct:     FieldItemQuantity,
	FieldItemQuantity:    FieldItemUnitPrice,
	FieldItemUnitPrice:   FieldItemDiscount,
	FieldItemDiscount:    FieldServiceCharges,
	FieldServiceCharges:  FieldBuyBack,
	FieldBuyBack:         FieldOverallDiscount,
	FieldOverallDiscount: FieldNotes,
	FieldNotes:           FieldSubmit,
	FieldSubmit:          FieldSubmit,
}

// NextField returns the field that follows current for the given document
// type. Buy-back and overall discount are sales-invoice features; other
// document types skip over them. Unknown fields restart at the customer.
func NextField(current Field, docType DocType) Field {
	next, ok := nextField[current]
	if !ok {
		return FieldCustomer
	}
	for docType != DocSalesInvoice && (next == FieldBuyBack || next == FieldOverallDiscount) {
		next = nextField[next]
	}
	return next
}
