// package common contains common types that are used throughout the importer and viewer. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNoImageData is returned when a texture has no resident image bytes (external URI images are never fetched).
var ErrNoImageData = errors.New("texture has no embedded image data")

// TextureStagingData holds RGBA pixel data for a decoded texture.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It is in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the sampler configuration for a texture, expressed with WebGPU enums so a renderer can create the sampler directly.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns the glTF default sampler: linear filtering with repeat wrapping.
//
// Returns:
//   - SamplerStagingData: the default sampler configuration
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// Alpha modes.
const (
	AlphaModeOpaque = "OPAQUE"
	AlphaModeMask   = "MASK"
	AlphaModeBlend  = "BLEND"
)

// ImportedMaterial represents material properties from an imported model file.
// Zero-valued factors are never left in place by the importer: every field is either read from the file or set to its glTF default.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// Emissive is the linear emissive color.
	Emissive [3]float32

	// EmissiveStrength scales Emissive (KHR_materials_emissive_strength). 1 when absent.
	EmissiveStrength float32

	// AlphaMode is one of AlphaModeOpaque, AlphaModeMask or AlphaModeBlend.
	AlphaMode string

	// AlphaCutoff is the MASK threshold.
	AlphaCutoff float32

	// DoubleSided disables back-face culling.
	DoubleSided bool

	// NormalScale scales the sampled tangent-space normal's XY.
	NormalScale float32

	// OcclusionStrength blends the occlusion map in.
	OcclusionStrength float32

	// Unlit marks KHR_materials_unlit materials.
	Unlit bool

	// Transmission is the KHR_materials_transmission factor.
	Transmission float32

	// Extensions lists the material extensions that a registered handler consumed.
	Extensions []string

	// DiffuseTexture is the base color texture.
	DiffuseTexture *ImportedTexture

	// MetallicRoughnessTexture packs roughness in G and metallic in B.
	MetallicRoughnessTexture *ImportedTexture

	// NormalTexture is the tangent-space normal map.
	NormalTexture *ImportedTexture

	// OcclusionTexture stores ambient occlusion in R.
	OcclusionTexture *ImportedTexture

	// EmissiveTexture is the emissive color map.
	EmissiveTexture *ImportedTexture
}

// DefaultImportedMaterial returns a material holding the glTF defaults for every factor.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - ImportedMaterial: the default material
func DefaultImportedMaterial(name string) ImportedMaterial {
	return ImportedMaterial{
		Name:              name,
		BaseColor:         [4]float32{1, 1, 1, 1},
		Metallic:          1,
		Roughness:         1,
		EmissiveStrength:  1,
		AlphaMode:         AlphaModeOpaque,
		AlphaCutoff:       0.5,
		NormalScale:       1,
		OcclusionStrength: 1,
	}
}

// Texture slot names, used to address a material texture by name.
const (
	SlotBaseColor         = "baseColor"
	SlotMetallicRoughness = "metallicRoughness"
	SlotNormal            = "normal"
	SlotOcclusion         = "occlusion"
	SlotEmissive          = "emissive"
)

// TextureSlot returns the texture bound to a named slot, or nil if the slot is empty or unknown.
//
// Parameters:
//   - slot: one of the Slot* constants
//
// Returns:
//   - *ImportedTexture: the texture or nil
func (m *ImportedMaterial) TextureSlot(slot string) *ImportedTexture {
	switch slot {
	case SlotBaseColor:
		return m.DiffuseTexture
	case SlotMetallicRoughness:
		return m.MetallicRoughnessTexture
	case SlotNormal:
		return m.NormalTexture
	case SlotOcclusion:
		return m.OcclusionTexture
	case SlotEmissive:
		return m.EmissiveTexture
	default:
		return nil
	}
}

// ImportedTexture represents texture data extracted from a model file.
// For embedded textures (GLB buffer views or data URIs), the Data field contains raw image bytes.
// For external textures only URI is set; the file is never read.
type ImportedTexture struct {
	// Name is an identifier for this texture.
	Name string

	// ImageIndex is the glTF image index the data came from (-1 when unknown).
	ImageIndex int

	// TexCoord is the UV set the material slot samples this texture with.
	TexCoord int

	// URI is the external image reference, if the image is not embedded.
	URI string

	// Data contains raw encoded image bytes (PNG, JPEG, WebP, KTX2).
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// SamplerData holds sampler parameters extracted from the model file.
	// When nil, DefaultSamplerStagingData applies.
	SamplerData *SamplerStagingData
}

// Embedded reports whether the texture carries resident image bytes.
func (t *ImportedTexture) Embedded() bool {
	return t != nil && len(t.Data) > 0
}

// decodeImage decodes the embedded image bytes with the registered image codecs.
func (t *ImportedTexture) decodeImage() (image.Image, error) {
	if t == nil {
		return nil, fmt.Errorf("texture is nil")
	}
	if len(t.Data) == 0 {
		return nil, ErrNoImageData
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded %s image: %w", Coalesce(t.MimeType, "unknown"), err)
	}
	return img, nil
}

// Decode decodes the texture to raw RGBA pixel data.
// Supports PNG, JPEG and WebP. Only embedded data is decoded.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order) with its dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	img, err := t.decodeImage()
	if err != nil {
		return TextureStagingData{}, err
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(t.Width),
		Height: uint32(t.Height),
	}, nil
}

// Thumbnail decodes the texture and scales it to fit within maxSize x maxSize, preserving aspect ratio.
// Images already smaller than maxSize are returned at their original size.
//
// Parameters:
//   - maxSize: the maximum width and height in pixels
//
// Returns:
//   - *image.RGBA: the scaled image
//   - error: error if decoding fails
func (t *ImportedTexture) Thumbnail(maxSize int) (*image.RGBA, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", maxSize)
	}

	img, err := t.decodeImage()
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t.Width, t.Height = w, h
	if w > maxSize || h > maxSize {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}
