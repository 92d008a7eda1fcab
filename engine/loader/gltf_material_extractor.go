package loader

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfImage is a resolved glTF image: either resident bytes or an unresolved external URI.
type gltfImage struct {
	name     string
	data     []byte
	mimeType string
	uri      string
}

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	resolver gltf.AccessorResolver
	registry ExtensionRegistry
	images   map[int]*gltfImage
}

// gltfMaterialExtractor defines the interface for extracting material and texture data
// from a parsed glTF document into engine-ready ImportedMaterial structs.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, including loading any referenced texture data.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *common.ImportedMaterial: the extracted material with any embedded texture data loaded
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error)

	// ExtractAllMaterials extracts all materials from the document.
	//
	// Returns:
	//   - []common.ImportedMaterial: all extracted materials, in document order
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]common.ImportedMaterial, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor over a resolver.
// Decoded images are cached per extractor, so textures sharing an image share its bytes.
//
// Parameters:
//   - resolver: the accessor resolver for the document's container
//   - registry: the extension registry consulted for material and texture extensions
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(resolver gltf.AccessorResolver, registry ExtensionRegistry) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		resolver: resolver,
		registry: registry,
		images:   make(map[int]*gltfImage),
	}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error) {
	doc := e.resolver.Document()
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, gltf.NewFormatError(gltf.KindReference, "material out of range (have %d)", len(doc.Materials)).AtIndex(materialIndex)
	}

	mat := &doc.Materials[materialIndex]
	name := mat.Name
	if name == "" {
		name = fmt.Sprintf("Material_%d", materialIndex)
	}
	result := common.DefaultImportedMaterial(name)

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.Roughness = *pbr.RoughnessFactor
		}

		if err := e.loadSlot(pbr.BaseColorTexture, &result.DiffuseTexture); err != nil {
			return nil, fmt.Errorf("material %q: base color texture: %w", name, err)
		}
		if err := e.loadSlot(pbr.MetallicRoughnessTexture, &result.MetallicRoughnessTexture); err != nil {
			return nil, fmt.Errorf("material %q: metallic-roughness texture: %w", name, err)
		}
	}

	if mat.NormalTexture != nil {
		if mat.NormalTexture.Scale != nil {
			result.NormalScale = *mat.NormalTexture.Scale
		}
		if err := e.loadSlot(&mat.NormalTexture.TextureInfo, &result.NormalTexture); err != nil {
			return nil, fmt.Errorf("material %q: normal texture: %w", name, err)
		}
	}

	if mat.OcclusionTexture != nil {
		if mat.OcclusionTexture.Strength != nil {
			result.OcclusionStrength = *mat.OcclusionTexture.Strength
		}
		if err := e.loadSlot(&mat.OcclusionTexture.TextureInfo, &result.OcclusionTexture); err != nil {
			return nil, fmt.Errorf("material %q: occlusion texture: %w", name, err)
		}
	}

	if mat.EmissiveFactor != nil {
		result.Emissive = *mat.EmissiveFactor
	}
	if err := e.loadSlot(mat.EmissiveTexture, &result.EmissiveTexture); err != nil {
		return nil, fmt.Errorf("material %q: emissive texture: %w", name, err)
	}

	switch mat.AlphaMode {
	case "":
	case common.AlphaModeOpaque, common.AlphaModeMask, common.AlphaModeBlend:
		result.AlphaMode = mat.AlphaMode
	default:
		return nil, gltf.NewFormatError(gltf.KindReference, "material %q: unknown alphaMode %q", name, mat.AlphaMode).AtIndex(materialIndex)
	}
	if mat.AlphaCutoff != nil {
		result.AlphaCutoff = *mat.AlphaCutoff
	}
	result.DoubleSided = mat.DoubleSided

	ctx := &ExtensionContext{
		Document:    doc,
		Resolver:    e.resolver,
		LoadTexture: e.loadTexture,
	}
	if err := e.registry.ParseMaterial(ctx, mat.Extensions, &result); err != nil {
		return nil, fmt.Errorf("material %q: %w", name, err)
	}

	return &result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]common.ImportedMaterial, error) {
	doc := e.resolver.Document()

	materials := make([]common.ImportedMaterial, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = *mat
	}

	return materials, nil
}

// loadSlot loads an optional texture reference into a material slot.
func (e *gltfMaterialExtractorImpl) loadSlot(info *gltf.TextureInfo, slot **common.ImportedTexture) error {
	if info == nil {
		return nil
	}
	tex, err := e.loadTexture(*info)
	if err != nil {
		return err
	}
	*slot = tex
	return nil
}

// loadTexture resolves a glTF texture reference into an ImportedTexture.
// Returns nil without error for a texture that has no image source.
// Embedded images (buffer view or data URI) carry their bytes; external images carry only their URI.
func (e *gltfMaterialExtractorImpl) loadTexture(info gltf.TextureInfo) (*common.ImportedTexture, error) {
	doc := e.resolver.Document()
	if info.Index < 0 || info.Index >= len(doc.Textures) {
		return nil, gltf.NewFormatError(gltf.KindReference, "texture out of range (have %d)", len(doc.Textures)).AtIndex(info.Index)
	}

	tex := &doc.Textures[info.Index]

	imageIndex := -1
	if tex.Source != nil {
		imageIndex = *tex.Source
	}
	ctx := &ExtensionContext{Document: doc, Resolver: e.resolver}
	if override, ok, err := e.registry.LoadImage(ctx, tex); err != nil {
		return nil, err
	} else if ok {
		imageIndex = override
	}
	if imageIndex < 0 {
		return nil, nil
	}

	img, err := e.loadImage(imageIndex)
	if err != nil {
		return nil, err
	}

	// Resolve glTF sampler parameters if this texture references one.
	var samplerData *common.SamplerStagingData
	if tex.Sampler != nil {
		if *tex.Sampler < 0 || *tex.Sampler >= len(doc.Samplers) {
			return nil, gltf.NewFormatError(gltf.KindReference, "sampler out of range (have %d)", len(doc.Samplers)).AtIndex(*tex.Sampler)
		}
		samplerData = gltfSamplerToStagingData(&doc.Samplers[*tex.Sampler])
	}

	return &common.ImportedTexture{
		Name:        common.Coalesce(tex.Name, img.name, fmt.Sprintf("Texture_%d", info.Index)),
		ImageIndex:  imageIndex,
		TexCoord:    info.TexCoord,
		URI:         img.uri,
		Data:        img.data,
		MimeType:    img.mimeType,
		SamplerData: samplerData,
	}, nil
}

// loadImage resolves an image once per extractor.
func (e *gltfMaterialExtractorImpl) loadImage(imageIndex int) (*gltfImage, error) {
	if img, ok := e.images[imageIndex]; ok {
		return img, nil
	}

	doc := e.resolver.Document()
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, gltf.NewFormatError(gltf.KindReference, "image out of range (have %d)", len(doc.Images)).AtIndex(imageIndex)
	}

	src := &doc.Images[imageIndex]
	img := &gltfImage{name: src.Name, mimeType: src.MimeType}

	switch {
	// Case 1: Image embedded in a buffer view (common in GLB)
	case src.BufferView != nil:
		view, err := e.resolver.BufferViewBytes(*src.BufferView)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", imageIndex, err)
		}
		img.data = append([]byte(nil), view...)

	// Case 2: Data URI (base64 encoded inline)
	case strings.HasPrefix(src.URI, "data:"):
		data, mimeType, err := gltfDecodeDataURI(src.URI)
		if err != nil {
			return nil, gltf.NewFormatError(gltf.KindSyntax, "image %d: malformed data URI", imageIndex).Wrap(err).AtIndex(imageIndex)
		}
		img.data = data
		img.mimeType = common.Coalesce(img.mimeType, mimeType)

	// Case 3: External file reference, recorded but never fetched
	case src.URI != "":
		img.uri = src.URI
	}

	e.images[imageIndex] = img
	return img, nil
}

// gltfDecodeDataURI decodes a data URI into raw bytes and extracts the MIME type.
// Both base64 and percent-encoded payloads are accepted.
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	// Format: data:[<mediatype>][;base64],<data>
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}

	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("malformed data URI: no comma found")
	}

	header := uri[5:commaIdx] // after "data:", before ","
	encoded := uri[commaIdx+1:]

	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	if !isBase64 {
		text, err := url.PathUnescape(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("failed to unescape data: %w", err)
		}
		return []byte(text), mimeType, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}

	return data, mimeType, nil
}

// gltfSamplerToStagingData converts a glTF sampler definition into engine-ready SamplerStagingData.
// Any unset fields in the glTF sampler fall back to the glTF spec defaults (linear filtering, repeat wrapping).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - *common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltf.Sampler) *common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltf.FilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltf.FilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltf.FilterNearest, gltf.FilterNearestMipmapNearest, gltf.FilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltf.FilterLinear, gltf.FilterLinearMipmapNearest, gltf.FilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		// Also set the mipmap filter based on the minification filter variant
		switch *s.MinFilter {
		case gltf.FilterNearestMipmapNearest, gltf.FilterLinearMipmapNearest:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltf.FilterNearestMipmapLinear, gltf.FilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		case gltf.FilterNearest, gltf.FilterLinear:
			// Non-mipmapped filters sample the base level only
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
			result.LodMaxClamp = 0
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return &result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltf.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltf.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
