package matching

import "github.com/desertthunder/synclify/internal/models"

type keySets struct {
	loose map[string]struct{}
	title map[string]struct{}
}

func buildKeySets(tracks []models.Track) keySets {
	ks := keySets{loose: make(map[string]struct{}, len(tracks)), title: make(map[string]struct{}, len(tracks))}
	for _, t := range tracks {
		loose, title := TrackKeys(t)
		ks.loose[loose] = struct{}{}
		ks.title[title] = struct{}{}
	}
	return ks
}

func (ks keySets) contains(t models.Track) bool {
	loose, title := TrackKeys(t)
	_, hasLoose := ks.loose[loose]
	_, hasTitle := ks.title[title]
	return hasLoose || hasTitle
}

// Reconcile returns the source tracks missing from destination, in source order, and the number
// of loose keys the two sides share.
//
// A source track is present when either its loose key or its title key exists on the destination.
// alreadyMatched only counts loose key overlap, so a track found by title alone is neither missing
// nor counted; callers should not expect alreadyMatched + len(missing) to equal len(source).
func Reconcile(source, destination []models.Track) (missing []models.Track, alreadyMatched int) {
	dest := buildKeySets(destination)

	missing = make([]models.Track, 0)
	srcLoose := make(map[string]struct{}, len(source))
	for _, t := range source {
		loose, _ := TrackKeys(t)
		srcLoose[loose] = struct{}{}
		if !dest.contains(t) {
			missing = append(missing, t)
		}
	}

	for k := range srcLoose {
		if _, ok := dest.loose[k]; ok {
			alreadyMatched++
		}
	}
	return missing, alreadyMatched
}

// Extra returns destination tracks with no loose or title key counterpart in source.
func Extra(source, destination []models.Track) []models.Track {
	src := buildKeySets(source)
	extra := make([]models.Track, 0)
	for _, t := range destination {
		if !src.contains(t) {
			extra = append(extra, t)
		}
	}
	return extra
}
