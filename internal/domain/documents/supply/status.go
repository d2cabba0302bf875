package supply

// DeriveStatus computes the lifecycle status from the reconciliation state.
// The stored status column is only ever written from here.
func DeriveStatus(o *SupplyOrder) OrderStatus {
	if o.CancelledAt != nil {
		return StatusCancelled
	}
	if o.TotalAmount.IsPositive() && o.TotalPaid.GreaterThanOrEqual(o.TotalAmount) {
		return StatusCompleted
	}

	totals := o.Totals()
	switch {
	case totals.Supplied > 0 && totals.Returned == totals.Supplied:
		return StatusFullyReturned
	case totals.Returned > 0:
		return StatusPartiallyReturned
	default:
		return StatusSupplied
	}
}

// refreshStatus stores the derived status on the order.
func (o *SupplyOrder) refreshStatus() {
	o.Status = DeriveStatus(o)
}

// isClosed reports whether the order accepts no more returns or edits.
func isClosed(s OrderStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}
