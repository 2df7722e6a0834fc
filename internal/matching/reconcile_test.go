package matching

import (
	"reflect"
	"testing"

	"github.com/desertthunder/synclify/internal/models"
)

func TestReconcile(t *testing.T) {
	tc := []struct {
		name        string
		source      []models.Track
		destination []models.Track
		wantMissing []string
		wantMatched int
	}{
		{
			name:        "promotional variant already present",
			source:      []models.Track{track("A", "X"), track("B", "Y")},
			destination: []models.Track{track("A (Official Video)", "X")},
			wantMissing: []string{"B"},
			wantMatched: 1,
		},
		{
			name:        "title only match is present but not counted",
			source:      []models.Track{track("Song", "X")},
			destination: []models.Track{track("Song", "Z")},
			wantMissing: []string{},
			wantMatched: 0,
		},
		{
			name:        "empty destination",
			source:      []models.Track{track("B", "Y"), track("A", "X")},
			destination: nil,
			wantMissing: []string{"B", "A"},
			wantMatched: 0,
		},
		{
			name:        "empty source",
			source:      nil,
			destination: []models.Track{track("A", "X")},
			wantMissing: []string{},
			wantMatched: 0,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			missing, matched := Reconcile(tt.source, tt.destination)
			if got := titles(missing); !reflect.DeepEqual(got, tt.wantMissing) {
				t.Errorf("expected missing %v, got %v", tt.wantMissing, got)
			}
			if matched != tt.wantMatched {
				t.Errorf("expected %d already matched, got %d", tt.wantMatched, matched)
			}
		})
	}

	t.Run("every source track is missing or present", func(t *testing.T) {
		source := []models.Track{track("One", "A"), track("Two", "B"), track("Three (Live)", "C"), track("Four", "D")}
		destination := []models.Track{track("Three", "C"), track("Two", "Q")}

		missing, _ := Reconcile(source, destination)
		dest := buildKeySets(destination)
		isMissing := make(map[string]bool)
		for _, m := range missing {
			isMissing[m.Title] = true
		}
		for _, s := range source {
			if isMissing[s.Title] == dest.contains(s) {
				t.Errorf("%q must be exactly one of missing or present", s.Title)
			}
		}
	})
}

func TestExtra(t *testing.T) {
	source := []models.Track{track("A", "X")}
	destination := []models.Track{track("A (Lyrics)", "X"), track("Z", "W")}

	if got := titles(Extra(source, destination)); !reflect.DeepEqual(got, []string{"Z"}) {
		t.Errorf("expected [Z], got %v", got)
	}
}
