package models

// Kind is the closed set of asset classifications found in the catalog's
// "m" column. Values outside the set map to KindUnknown.
type Kind string

const (
	KindUnknown        Kind = ""
	Kind3DCutt         Kind = "_3d_cutt"
	KindAnnounce       Kind = "announce"
	KindAtlas          Kind = "atlas"
	KindBG             Kind = "bg"
	KindChallengeMatch Kind = "challengematch"
	KindChara          Kind = "chara"
	KindCollectEvent   Kind = "collectevent"
	KindFont           Kind = "font"
	KindFontResources  Kind = "fontresources"
	KindGacha          Kind = "gacha"
	KindGachaSelect    Kind = "gachaselect"
	KindGuide          Kind = "guide"
	KindHeroes         Kind = "heroes"
	KindHome           Kind = "home"
	KindImageEffect    Kind = "imageeffect"
	KindItem           Kind = "item"
	KindJobs           Kind = "jobs"
	KindLipsync        Kind = "lipsync"
	KindLive           Kind = "live"
	KindLoginBonus     Kind = "loginbonus"
	KindManifest       Kind = "manifest"
	KindManifest2      Kind = "manifest2"
	KindManifest3      Kind = "manifest3"
	KindMapEvent       Kind = "mapevent"
	KindMaster         Kind = "master"
	KindMinigame       Kind = "minigame"
	KindMob            Kind = "mob"
	KindMovie          Kind = "movie"
	KindOutgame        Kind = "outgame"
	KindPaddock        Kind = "paddock"
	KindRace           Kind = "race"
	KindRatingRace     Kind = "ratingrace"
	KindShader         Kind = "shader"
	KindSingle         Kind = "single"
	KindSound          Kind = "sound"
	KindStory          Kind = "story"
	KindStoryEvent     Kind = "storyevent"
	KindSupportCard    Kind = "supportcard"
	KindTeamBuilding   Kind = "teambuilding"
	KindTransferEvent  Kind = "transferevent"
	KindUIAnimation    Kind = "uianimation"
)

var knownKinds = map[Kind]struct{}{
	Kind3DCutt: {}, KindAnnounce: {}, KindAtlas: {}, KindBG: {}, KindChallengeMatch: {},
	KindChara: {}, KindCollectEvent: {}, KindFont: {}, KindFontResources: {}, KindGacha: {},
	KindGachaSelect: {}, KindGuide: {}, KindHeroes: {}, KindHome: {}, KindImageEffect: {},
	KindItem: {}, KindJobs: {}, KindLipsync: {}, KindLive: {}, KindLoginBonus: {},
	KindManifest: {}, KindManifest2: {}, KindManifest3: {}, KindMapEvent: {}, KindMaster: {},
	KindMinigame: {}, KindMob: {}, KindMovie: {}, KindOutgame: {}, KindPaddock: {},
	KindRace: {}, KindRatingRace: {}, KindShader: {}, KindSingle: {}, KindSound: {},
	KindStory: {}, KindStoryEvent: {}, KindSupportCard: {}, KindTeamBuilding: {},
	KindTransferEvent: {}, KindUIAnimation: {},
}

// ParseKind maps a raw classification string to a Kind. It never fails.
func ParseKind(raw string) Kind {
	if _, ok := knownKinds[Kind(raw)]; ok {
		return Kind(raw)
	}
	return KindUnknown
}

// Known reports whether k is a member of the closed set.
func (k Kind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}
