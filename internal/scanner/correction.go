package scanner

import (
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"github.com/anime-shed/grid-scanner-go/internal/config"
)

// canonicalStatLabels is the closed set of stat names the target
// application can render. Recognized text is snapped to this set.
var canonicalStatLabels = []string{
	"HP",
	"ATK",
	"DEF",
	"Elemental Mastery",
	"Energy Recharge",
	"CRIT Rate",
	"CRIT DMG",
	"Healing Bonus",
	"Physical DMG Bonus",
}

// truncationFixes rewrites known clipped labels back to canonical form.
// The compact and overlay display modes shrink the panel enough that
// the first glyph of long labels lands outside the field region.
var truncationFixes = map[string]string{
	"lemental Mastery": "Elemental Mastery",
	"nergy Recharge":   "Energy Recharge",
	"RIT Rate":         "CRIT Rate",
	"RIT DMG":          "CRIT DMG",
	"ealing Bonus":     "Healing Bonus",
}

// CorrectStatName applies the truncation rule table. The fixes only
// fire when the equip marker was detected on the panel and the display
// mode is one of the clipping modes; applying them globally would mask
// genuine recognition errors on healthy captures.
func CorrectStatName(raw string, markerDetected bool, mode config.DisplayMode) string {
	if !markerDetected {
		return raw
	}
	if mode != config.DisplayCompact && mode != config.DisplayOverlay {
		return raw
	}
	if fixed, ok := truncationFixes[strings.TrimSpace(raw)]; ok {
		return fixed
	}
	return raw
}

// maxLabelDistance bounds how far recognized text may be from a
// canonical label and still snap to it.
const maxLabelDistance = 2

// NearestStatLabel snaps recognized text to the closest canonical stat
// label, false when nothing is within the edit-distance bound.
func NearestStatLabel(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	best := ""
	bestDist := maxLabelDistance + 1
	for _, label := range canonicalStatLabels {
		if d := levenshtein.Distance(raw, label); d < bestDist {
			best = label
			bestDist = d
		}
	}
	if bestDist > maxLabelDistance {
		return "", false
	}
	return best, true
}

// QualityRatio scores recognized text against an expected reference as
// 1 minus the word error rate, clamped to [0, 1]. Used for diagnostics
// only; it never alters results.
func QualityRatio(reference, hypothesis string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)
	if len(ref) == 0 {
		return 0
	}
	rate, _ := wer.WER(ref, hyp)
	ratio := 1 - rate
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
