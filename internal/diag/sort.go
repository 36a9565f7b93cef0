package diag

import "sort"

// SortDiagnostics orders diagnostics deterministically so repeated runs
// over the same tree produce the same diagnostic set (spec §8, validator
// determinism).
func SortDiagnostics(diags []Diagnostic) {
	if len(diags) < 2 {
		return
	}
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Less(b.Range.Start)
		}
		if a.Range.End != b.Range.End {
			return a.Range.End.Less(b.Range.End)
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		ac, bc := kindKey(a), kindKey(b)
		if ac != bc {
			return ac < bc
		}
		return a.Message < b.Message
	})
}

func kindKey(d Diagnostic) string {
	if len(d.Kinds) == 0 {
		return ""
	}
	return d.Kinds[0].String()
}
