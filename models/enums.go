package models

import (
	"encoding/json"
	"errors"
)

// NodeKind distinguishes the three recipe entity kinds. Stored as a single
// char so legacy rows and csv dumps stay compact.
type NodeKind string

const (
	NodeKindFinalProduct NodeKind = "F"
	NodeKindPremake      NodeKind = "M"
	NodeKindPreproduct   NodeKind = "P"
)

func (t NodeKind) Valid() bool {
	switch t {
	case NodeKindFinalProduct, NodeKindPremake, NodeKindPreproduct:
		return true
	}
	return false
}

func (t *NodeKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("node kind must be string")
	}
	kind := NodeKind(str)
	if !kind.Valid() {
		return errors.New("invalid node kind")
	}
	*t = kind
	return nil
}

// ComponentKind is the recipe line type.
// Labor lines are carried for the data model but inactive: costing and
// production both skip them.
type ComponentKind string

const (
	ComponentKindRawMaterial ComponentKind = "R"
	ComponentKindPackaging   ComponentKind = "K"
	ComponentKindNested      ComponentKind = "N"
	ComponentKindLoss        ComponentKind = "L"
	ComponentKindLabor       ComponentKind = "B"
)

func (t ComponentKind) Valid() bool {
	switch t {
	case ComponentKindRawMaterial, ComponentKindPackaging, ComponentKindNested, ComponentKindLoss, ComponentKindLabor:
		return true
	}
	return false
}

func (t *ComponentKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("component kind must be string")
	}
	kind := ComponentKind(str)
	if !kind.Valid() {
		return errors.New("invalid component kind")
	}
	*t = kind
	return nil
}

type MaterialKind string

const (
	MaterialKindRaw       MaterialKind = "R"
	MaterialKindPackaging MaterialKind = "P"
)

func (t MaterialKind) Valid() bool {
	switch t {
	case MaterialKindRaw, MaterialKindPackaging:
		return true
	}
	return false
}

func (t *MaterialKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("material kind must be string")
	}
	kind := MaterialKind(str)
	if !kind.Valid() {
		return errors.New("invalid material kind")
	}
	*t = kind
	return nil
}

// StockOperation is the ledger event operation: additive delta or absolute
// set (stock-take).
type StockOperation string

const (
	StockOperationAdd         StockOperation = "A"
	StockOperationSetAbsolute StockOperation = "S"
)

func (t StockOperation) Valid() bool {
	switch t {
	case StockOperationAdd, StockOperationSetAbsolute:
		return true
	}
	return false
}

func (t *StockOperation) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("stock operation must be string")
	}
	op := StockOperation(str)
	if !op.Valid() {
		return errors.New("invalid stock operation")
	}
	*t = op
	return nil
}

// StockReferenceType links a ledger event back to the document that
// produced it.
type StockReferenceType string

const (
	StockReferenceTypeProduction StockReferenceType = "PR"
	StockReferenceTypeAdjustment StockReferenceType = "ADJ"
	StockReferenceTypeImport     StockReferenceType = "IMP"
)
