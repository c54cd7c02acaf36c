package portrait

import (
	"portrait-studio-server/modules/common/utils"
)

// ResultMimeType - generated payloads are always labelled as JPEG.
// The model may return PNG; the label is not corrected.
const ResultMimeType = "image/jpeg"

// Phase - coarse view of State
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseHasImage  Phase = "has_image"
	PhaseLoading   Phase = "loading"
	PhaseHasResult Phase = "has_result"
)

// UploadedImage - current selection: the file and its displayable data URL
type UploadedImage struct {
	File    utils.BinaryFile
	DataURL string
}

// State - everything the page renders. Values are replaced, never mutated in place.
type State struct {
	OriginalImage  *UploadedImage
	ClothingStyle  string
	Scenery        string
	GeneratedImage string
	IsLoading      bool
	Error          string
}

// NewState - initial state with the form defaults
func NewState(clothingStyle, scenery string) State {
	return State{ClothingStyle: clothingStyle, Scenery: scenery}
}

// Phase - derived from the fields
func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.GeneratedImage != "":
		return PhaseHasResult
	case s.OriginalImage != nil:
		return PhaseHasImage
	default:
		return PhaseIdle
	}
}

// CanSubmit - the submit action is enabled
func (s State) CanSubmit() bool {
	return s.OriginalImage != nil && !s.IsLoading
}

// SelectImage - a new image replaces the old one and clears the previous result
func SelectImage(s State, img UploadedImage) State {
	s.OriginalImage = &img
	s.GeneratedImage = ""
	s.Error = ""
	return s
}

// RejectImage - a selection that failed leaves the current image untouched
func RejectImage(s State, message string) State {
	s.Error = message
	return s
}

func UpdateClothingStyle(s State, v string) State {
	s.ClothingStyle = v
	return s
}

func UpdateScenery(s State, v string) State {
	s.Scenery = v
	return s
}

// BeginSubmit - enter Loading, or return the errored state and why it cannot start
func BeginSubmit(s State) (State, error) {
	if s.IsLoading {
		return s, ErrBusy
	}
	if s.OriginalImage == nil || s.ClothingStyle == "" || s.Scenery == "" {
		s.Error = MsgValidation
		return s, ErrValidation
	}

	s.IsLoading = true
	s.Error = ""
	s.GeneratedImage = ""
	return s, nil
}

// Succeed - terminal success with the returned Base64 payload
func Succeed(s State, payload string) State {
	s.GeneratedImage = utils.ToDataURL(ResultMimeType, payload)
	s.IsLoading = false
	s.Error = ""
	return s
}

// Fail - terminal failure; the uploaded image is kept
func Fail(s State, message string) State {
	s.IsLoading = false
	s.Error = message
	return s
}
