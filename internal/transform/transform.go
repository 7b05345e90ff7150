// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transform converts spilled raw entity records into JSON-LD
// nodes using the canonical schema graph. It runs strictly after
// extraction has joined: spill files are the handoff between the two
// phases.
package transform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/ledger-migrate/internal/extract"
	"github.com/pdiddy/ledger-migrate/internal/schema"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// NodeSink receives transformed nodes. The output stage implements it.
type NodeSink interface {
	Append(ctx context.Context, node types.Node) error
}

// Transformer walks spill files in flush order and feeds transformed
// nodes to a sink.
type Transformer struct {
	Registry *schema.Registry
	SpillDir string

	// Out receives status lines. Defaults to io.Discard.
	Out io.Writer
}

// Run processes every spill file in filename (= flush) order. A spill
// file naming a class the registry does not know signals an
// extraction/schema mismatch and is fatal. Each file is deleted
// immediately once fully read, whether or not its records transform
// cleanly.
func (t *Transformer) Run(ctx context.Context, sink NodeSink) error {
	names, err := extract.ListSpillFiles(t.SpillDir)
	if err != nil {
		return err
	}

	for _, name := range names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rawClass, err := extract.SpillClass(name)
		if err != nil {
			return err
		}
		cls := t.Registry.LookupClass(rawClass)
		if cls == nil {
			return fmt.Errorf("spill file %s references class %q missing from the canonical schema", name, rawClass)
		}

		records, readErr := extract.ReadSpill(t.SpillDir, name)
		if removeErr := os.Remove(filepath.Join(t.SpillDir, name)); removeErr != nil {
			fmt.Fprintf(t.out(), "warning: could not delete spill file %s: %v\n", name, removeErr)
		}
		if readErr != nil {
			return readErr
		}

		if len(records) > 0 {
			fmt.Fprintf(t.out(), "%12s %s data (%d records)\n", "Transforming", cls.Label, len(records))
		}
		for _, rec := range records {
			node, ok := t.transformRecord(rawClass, cls, rec)
			if !ok {
				continue
			}
			if err := sink.Append(ctx, node); err != nil {
				return err
			}
		}
	}
	return nil
}

// transformRecord builds one JSON-LD node. Raw keys without a
// canonical property are dropped silently; records without a numeric
// _id cannot be addressed and are skipped.
func (t *Transformer) transformRecord(rawClass string, cls *schema.Class, rec types.EntityRecord) (types.Node, bool) {
	id, ok := numericID(rec["_id"])
	if !ok {
		return nil, false
	}

	node := types.Node{
		"@id":   strconv.FormatInt(id, 10),
		"@type": cls.IRI,
	}
	for key, value := range rec {
		prop := t.Registry.LookupProperty(key)
		if prop == nil {
			continue
		}
		con := t.Registry.LookupConstraint(rawClass, key)
		switch {
		case con != nil && con.Datatype == "xsd:dateTime":
			node[prop.IRI] = convertInstant(value)
		case con != nil && con.ClassRef != "":
			node[prop.IRI] = refValue(value)
		default:
			node[prop.IRI] = value
		}
	}
	return node, true
}

func (t *Transformer) out() io.Writer {
	if t.Out != nil {
		return t.Out
	}
	return io.Discard
}
