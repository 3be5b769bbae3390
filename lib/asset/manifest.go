// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import "fmt"

// Point is an integer coordinate pair.
type Point struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

// SubtextureRect is a named rectangular region within a packed sprite
// atlas.
type SubtextureRect struct {
	// Name is the sprite's path, relative to the atlas.
	Name string `json:"name" yaml:"name"`

	X      int32 `json:"x" yaml:"x"`
	Y      int32 `json:"y" yaml:"y"`
	Width  int32 `json:"width" yaml:"width"`
	Height int32 `json:"height" yaml:"height"`

	// TopLeft is the offset of the trimmed sprite inside its original
	// untrimmed frame.
	TopLeft Point `json:"top_left" yaml:"top_left"`

	// OriginalSize is the untrimmed frame size.
	OriginalSize Point `json:"original_size" yaml:"original_size"`

	ScaleX float32 `json:"scale_x" yaml:"scale_x"`
	ScaleY float32 `json:"scale_y" yaml:"scale_y"`

	Multi  bool `json:"multi,omitempty" yaml:"multi,omitempty"`
	Mip    bool `json:"mip,omitempty" yaml:"mip,omitempty"`
	Alpha8 bool `json:"alpha8,omitempty" yaml:"alpha8,omitempty"`

	// Hull is the convex hull of opaque pixels, when the atlas
	// version records one.
	Hull []Point `json:"hull,omitempty" yaml:"hull,omitempty"`
}

// ManifestRecord is the structural metadata for one entry. A record
// is associated 1:1 with the entry of the same Name.
type ManifestRecord struct {
	// Name is the owning entry's name.
	Name string `json:"name" yaml:"name"`

	// Version is the atlas format revision the record was authored
	// against.
	Version int32 `json:"version,omitempty" yaml:"version,omitempty"`

	// Subtextures are the atlas sub-rectangles, in authored order.
	Subtextures []SubtextureRect `json:"subtextures,omitempty" yaml:"subtextures,omitempty"`

	// ReferencedTexture names a texture entry holding the atlas
	// pixels when they live outside this entry.
	ReferencedTexture string `json:"referenced_texture,omitempty" yaml:"referenced_texture,omitempty"`

	// SpinePath is the external Spine asset path for animation
	// references.
	SpinePath string `json:"spine_path,omitempty" yaml:"spine_path,omitempty"`

	// BinaryPath is the external file path for binary references.
	BinaryPath string `json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
}

// SubtextureNames returns the names of the record's sub-rectangles in
// order. A nil record has none.
func (r *ManifestRecord) SubtextureNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Subtextures))
	for i, subtexture := range r.Subtextures {
		names[i] = subtexture.Name
	}
	return names
}

// Clone returns a deep copy of the record.
func (r *ManifestRecord) Clone() *ManifestRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Subtextures != nil {
		clone.Subtextures = make([]SubtextureRect, len(r.Subtextures))
		for i, subtexture := range r.Subtextures {
			clone.Subtextures[i] = subtexture
			if subtexture.Hull != nil {
				clone.Subtextures[i].Hull = append([]Point(nil), subtexture.Hull...)
			}
		}
	}
	return &clone
}

// Validate checks the record's own fields. Whether the named entry
// exists is checked by the container against its entry table.
func (r *ManifestRecord) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return fmt.Errorf("manifest record: %w", err)
	}
	for i, subtexture := range r.Subtextures {
		if subtexture.Name == "" {
			return fmt.Errorf("manifest record %q: subtexture %d has no name", r.Name, i)
		}
		if subtexture.Width < 0 || subtexture.Height < 0 {
			return fmt.Errorf("manifest record %q: subtexture %q has negative size %dx%d",
				r.Name, subtexture.Name, subtexture.Width, subtexture.Height)
		}
	}
	return nil
}
