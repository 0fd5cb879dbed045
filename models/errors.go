package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CircularReferenceError reports a recipe graph that (transitively) contains
// itself. Fatal to any cost or production request on that graph.
type CircularReferenceError struct {
	// Path holds node ids from the first node of the cycle back to itself.
	Path []int
}

func (e *CircularReferenceError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, strconv.Itoa(id))
	}
	return "circular recipe reference: " + strings.Join(parts, " -> ")
}

// MissingPriceError reports a component whose material has no resolvable
// price. Recoverable by fixing the material's offers or default price.
type MissingPriceError struct {
	MaterialId int
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no resolvable price for material %d", e.MaterialId)
}

// UnknownSupplierOfferError reports a (material, supplier) pair without an
// offer. Caller bug.
type UnknownSupplierOfferError struct {
	MaterialId int
	SupplierId int
}

func (e *UnknownSupplierOfferError) Error() string {
	return fmt.Sprintf("no supplier offer for material %d from supplier %d", e.MaterialId, e.SupplierId)
}

// InsufficientStockError is the expected, recoverable posting failure:
// the requirement cannot be satisfied from any combination of suppliers.
// Exactly one of MaterialId / NodeId is set (NodeId for stocked premakes).
type InsufficientStockError struct {
	MaterialId *int
	NodeId     *int
	Name       string
	Shortfall  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	subject := e.Name
	if subject == "" {
		if e.MaterialId != nil {
			subject = fmt.Sprintf("material %d", *e.MaterialId)
		} else if e.NodeId != nil {
			subject = fmt.Sprintf("premake %d", *e.NodeId)
		}
	}
	return fmt.Sprintf("insufficient stock for %s: short %s", subject, e.Shortfall.String())
}
