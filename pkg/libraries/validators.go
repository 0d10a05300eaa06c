package libraries

type CreateLibraryPayload struct {
	Name     string `json:"name" validate:"required,max=100"`
	Filepath string `json:"filepath" validate:"required"`
}

type ListLibrariesQuery struct {
	Limit   int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset  int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Deleted bool `query:"deleted" json:"deleted,omitempty"`
}

type UpdateLibraryPayload struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Filepath *string `json:"filepath,omitempty"`
	Deleted  *bool   `json:"deleted,omitempty" validate:"omitempty"`
}

type GenerateThumbnailsPayload struct {
	Force    bool `json:"force,omitempty"`
	Parallel bool `json:"parallel,omitempty"`
	Workers  int  `json:"workers,omitempty" validate:"min=0,max=64"`
}
