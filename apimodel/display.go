package apimodel

type DisplayId string

type ImageInfo struct {
	ImageId   string                 `json:"image_id"`
	ImageType string                 `json:"image_type"`
	MimeType  string                 `json:"mime_type"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type TransformerInfo struct {
	TransformerId string                 `json:"transformer_id"`
	Kind          string                 `json:"kind"`
	Active        bool                   `json:"active"`
	Description   string                 `json:"description"`
	Configuration map[string]interface{} `json:"configuration"`
	Position      int                    `json:"position"`
}

type DisplaySummary struct {
	DisplayId      DisplayId         `json:"display_id"`
	ControllerType string            `json:"controller_type"`
	StoreType      string            `json:"store_type"`
	CurrentImageId *string           `json:"current_image_id"`
	ImageIds       []string          `json:"image_ids"`
	Transformers   []TransformerInfo `json:"transformers"`
	Sleeping       bool              `json:"sleeping"`
}

type CurrentImageUpdate struct {
	ImageId string `json:"image_id"`
}

type SleepState struct {
	Sleeping bool `json:"sleeping"`
}

type TransformerUpdate struct {
	Active        *bool                  `json:"active,omitempty"`
	Configuration map[string]interface{} `json:"configuration,omitempty"`
	Position      *int                   `json:"position,omitempty"`
}
