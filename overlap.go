package mergeguard

import "sort"

// ComputeOverlaps computes the file-level and symbol-level overlap between
// two proposals. One Overlap is returned per shared file, annotated with the
// changed symbols whose ranges intersect between the two sides. The result is
// symmetric: swapping a and b yields an equivalent overlap set.
func ComputeOverlaps(a, b *Proposal) []Overlap {
	if a.Number == b.Number {
		return nil
	}

	bFiles := b.FilePaths()
	var shared []string
	for _, f := range a.Files {
		if _, ok := bFiles[f.Path]; ok {
			shared = append(shared, f.Path)
		}
	}
	sort.Strings(shared)

	var overlaps []Overlap
	for _, path := range shared {
		af, _ := a.File(path)
		bf, _ := b.File(path)

		ov := Overlap{
			File:   path,
			A:      a.Number,
			B:      b.Number,
			ALines: af.ModifiedRanges(),
			BLines: bf.ModifiedRanges(),
		}

		// A file present in the diff but missing from the symbol model
		// (unsupported language, parse failure) is still usable for
		// file-level overlap; symbol classification is skipped.
		if !a.SymbolCoverage[path] || !b.SymbolCoverage[path] {
			ov.CoarseFallback = true
			overlaps = append(overlaps, ov)
			continue
		}

		aSyms := a.SymbolsInFile(path)
		bSyms := b.SymbolsInFile(path)
		ov.Shared = sharedSymbols(aSyms, bSyms)
		_, ov.AUnattributed = MapRangesToSymbols(NewSymbolIndex(symbolsAfter(aSyms)), ov.ALines)
		_, ov.BUnattributed = MapRangesToSymbols(NewSymbolIndex(symbolsAfter(bSyms)), ov.BLines)
		overlaps = append(overlaps, ov)
	}
	return overlaps
}

// symbolsAfter collects the after-side symbol set for attribution. Removed
// symbols live at base-ref line numbers and cannot enclose modified
// (after-side) lines.
func symbolsAfter(cs []ChangedSymbol) []Symbol {
	var syms []Symbol
	for _, c := range cs {
		if c.Change == ChangeRemoved {
			continue
		}
		syms = append(syms, c.Symbol)
	}
	return syms
}

// sharedSymbols pairs up changed symbols present on both sides of a file,
// matched by name, and marks whether their touched ranges directly intersect.
func sharedSymbols(as, bs []ChangedSymbol) []SharedSymbol {
	byName := make(map[string]ChangedSymbol, len(bs))
	for _, cs := range bs {
		byName[cs.Symbol.Name] = cs
	}

	var shared []SharedSymbol
	for _, acs := range as {
		bcs, ok := byName[acs.Symbol.Name]
		if !ok {
			continue
		}
		shared = append(shared, SharedSymbol{
			Name:          acs.Symbol.Name,
			A:             acs,
			B:             bcs,
			DirectOverlap: RangesIntersect(acs.Touched, bcs.Touched),
		})
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Name < shared[j].Name })
	return shared
}

// MapRangesToSymbols attributes modified line ranges to the innermost
// enclosing symbols in the index, returning one ChangedSymbol per affected
// symbol with the subset of ranges that fall inside it. Ranges outside every
// known symbol are returned separately as unattributed.
func MapRangesToSymbols(idx *SymbolIndex, ranges []LineRange) (attributed []ChangedSymbol, unattributed []LineRange) {
	type bucket struct {
		sym    Symbol
		ranges []LineRange
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, r := range ranges {
		sym, ok := idx.EnclosingRange(r)
		if !ok {
			unattributed = append(unattributed, r)
			continue
		}
		key := sym.Name
		if _, exists := buckets[key]; !exists {
			buckets[key] = &bucket{sym: sym}
			order = append(order, key)
		}
		buckets[key].ranges = append(buckets[key].ranges, r)
	}

	for _, key := range order {
		b := buckets[key]
		attributed = append(attributed, ChangedSymbol{
			Symbol:  b.sym,
			Change:  ChangeBodyModified,
			Touched: b.ranges,
		})
	}
	return attributed, unattributed
}
