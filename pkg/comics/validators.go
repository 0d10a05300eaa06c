package comics

type ListComicsQuery struct {
	LibraryID *int `query:"library_id" json:"library_id,omitempty"`
	Limit     int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type PageQuery struct {
	Sharpen   bool `query:"sharpen" json:"sharpen,omitempty"`
	Grayscale bool `query:"grayscale" json:"grayscale,omitempty"`
	Webp      bool `query:"webp" json:"webp,omitempty"`
}
