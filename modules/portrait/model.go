package portrait

// StateView - JSON shape of State sent to the page
type StateView struct {
	Phase          Phase  `json:"phase"`
	OriginalImage  string `json:"originalImage,omitempty"`  // data URL
	FileName       string `json:"fileName,omitempty"`
	ClothingStyle  string `json:"clothingStyle"`
	Scenery        string `json:"scenery"`
	GeneratedImage string `json:"generatedImage,omitempty"` // data URL
	IsLoading      bool   `json:"isLoading"`
	Error          string `json:"error,omitempty"`
	CanSubmit      bool   `json:"canSubmit"`
}

// NewStateView - view of s
func NewStateView(s State) StateView {
	v := StateView{
		Phase:          s.Phase(),
		ClothingStyle:  s.ClothingStyle,
		Scenery:        s.Scenery,
		GeneratedImage: s.GeneratedImage,
		IsLoading:      s.IsLoading,
		Error:          s.Error,
		CanSubmit:      s.CanSubmit(),
	}
	if s.OriginalImage != nil {
		v.OriginalImage = s.OriginalImage.DataURL
		v.FileName = s.OriginalImage.File.Name
	}
	return v
}

// FieldsRequest - PUT /api/sessions/{sessionId}/fields
type FieldsRequest struct {
	ClothingStyle *string `json:"clothingStyle,omitempty"`
	Scenery       *string `json:"scenery,omitempty"`
}

// Response - every JSON endpoint answers with this
type Response struct {
	Success      bool      `json:"success"`
	SessionID    string    `json:"sessionId,omitempty"`
	State        StateView `json:"state"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}
