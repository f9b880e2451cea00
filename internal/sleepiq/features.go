package sleepiq

// Board feature bits of fsBoardFeatures.
const (
	featureBoardIsASingle = iota
	featureMassageAndLight
	featureFootControl
	featureFootWarming
	featureUnderbedLight
)

// Bed types of fsBedType.
const (
	bedTypeSingle = iota
	bedTypeSplitHead
	bedTypeSplitKing
	bedTypeEasternKing
)

func hasBit(mask, bit int) bool {
	return mask&(1<<bit) != 0
}

// DecodeFeatures expands the foundation bitmask and bed type into named flags.
// An unknown bed type sets none of the layout flags.
func DecodeFeatures(boardFeatures, bedType int) Features {
	f := Features{
		BoardIsASingle:     hasBit(boardFeatures, featureBoardIsASingle),
		HasMassageAndLight: hasBit(boardFeatures, featureMassageAndLight),
		HasFootControl:     hasBit(boardFeatures, featureFootControl),
		HasFootWarming:     hasBit(boardFeatures, featureFootWarming),
		HasUnderbedLight:   hasBit(boardFeatures, featureUnderbedLight),
	}

	switch bedType {
	case bedTypeSingle:
		f.Single = true
	case bedTypeSplitHead:
		f.SplitHead = true
	case bedTypeSplitKing:
		f.SplitKing = true
	case bedTypeEasternKing:
		f.EasternKing = true
	}

	// Order matters: both rules run after the raw bits are read.
	if f.HasMassageAndLight {
		f.HasUnderbedLight = true
	}
	if f.SplitKing || f.SplitHead {
		f.BoardIsASingle = false
	}
	return f
}

// DecodeFeatures decodes the foundation's capability map, echoing its PWM levels.
func (f *Foundation) DecodeFeatures() Features {
	features := DecodeFeatures(f.BoardFeatures, f.BedType)
	features.LeftUnderbedLightPWM = f.LeftUnderbedLightPWM
	features.RightUnderbedLightPWM = f.RightUnderbedLightPWM
	return features
}
