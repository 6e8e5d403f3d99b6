package maestro

import (
	"context"
	"encoding/json"
)

type BatchOpKind int

const (
	batchPut BatchOpKind = iota
	batchDelete
)

type BatchOp struct {
	Kind BatchOpKind
	Doc  []byte // for put
	ID   int64  // for delete
}

// Batch collects element inserts and deletes applied in one transaction.
// Deletes of missing elements are skipped and not counted.
type Batch struct {
	ops []BatchOp
}

func NewBatch() Batch {
	return Batch{ops: make([]BatchOp, 0)}
}

// PutJSON queues an element document. Only its JSON syntax is checked here;
// names are resolved when the batch runs.
func (b *Batch) PutJSON(doc []byte) error {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return Wrap(ErrInvalid, "document json", err)
	}
	b.ops = append(b.ops, BatchOp{Kind: batchPut, Doc: doc})
	return nil
}

func (b *Batch) Delete(id int64) error {
	if id <= 0 {
		return Invalid("element id must be positive")
	}
	b.ops = append(b.ops, BatchOp{Kind: batchDelete, ID: id})
	return nil
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Empty() bool {
	return len(b.ops) == 0
}

// Execute is implemented on Library to keep storage access internal
func (b *Batch) Execute(ctx context.Context, lib *Library) (int, error) {
	return lib.Batch(ctx, *b)
}
