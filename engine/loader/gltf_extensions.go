package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
)

// Extension names with a default handler.
const (
	ExtMaterialsUnlit              = "KHR_materials_unlit"
	ExtMaterialsEmissiveStrength   = "KHR_materials_emissive_strength"
	ExtMaterialsSpecularGlossiness = "KHR_materials_pbrSpecularGlossiness"
	ExtMaterialsTransmission       = "KHR_materials_transmission"
	ExtTextureBasisu               = "KHR_texture_basisu"
	ExtTextureWebP                 = "EXT_texture_webp"
	ExtMeshQuantization            = "KHR_mesh_quantization"
	ExtDracoMeshCompression        = "KHR_draco_mesh_compression"
)

// ErrDracoUnsupported is returned for primitives that carry Draco-compressed geometry.
var ErrDracoUnsupported = errors.New("draco mesh compression is not supported")

// ExtensionContext gives extension handlers read access to the document being imported.
type ExtensionContext struct {
	// Document is the parsed glTF document.
	Document *gltf.Document

	// Resolver decodes accessors and buffer views of the document's container.
	Resolver gltf.AccessorResolver

	// LoadTexture resolves a texture reference to an ImportedTexture. Only set during material extraction.
	LoadTexture func(info gltf.TextureInfo) (*common.ImportedTexture, error)
}

// ExtensionHandler holds the callbacks an extension implements. Every callback is optional.
// raw is the JSON payload found under the extension's name in the object's "extensions" map.
type ExtensionHandler struct {
	// ParseMaterial updates an imported material from the material-level payload.
	ParseMaterial func(ctx *ExtensionContext, raw json.RawMessage, mat *common.ImportedMaterial) error

	// ParsePrimitive inspects a primitive-level payload before the primitive's attributes are read.
	ParsePrimitive func(ctx *ExtensionContext, raw json.RawMessage, prim *gltf.Primitive) error

	// LoadImage selects the image a texture samples from a texture-level payload.
	// It returns ok=false when the payload does not name an image.
	LoadImage func(ctx *ExtensionContext, raw json.RawMessage, tex *gltf.Texture) (image int, ok bool, err error)
}

// extensionRegistryImpl is the implementation of the ExtensionRegistry interface.
type extensionRegistryImpl struct {
	mu       sync.RWMutex
	handlers map[string]ExtensionHandler
}

// ExtensionRegistry is a capability-keyed dispatch table from extension name to handler.
// Extensions without a registered handler are ignored, never fatal. Handler errors abort the import.
type ExtensionRegistry interface {
	// Register adds or replaces the handler for an extension.
	//
	// Parameters:
	//   - name: the extension name (e.g. "KHR_materials_unlit")
	//   - handler: the handler callbacks
	Register(name string, handler ExtensionHandler)

	// Unregister removes the handler for an extension.
	//
	// Parameters:
	//   - name: the extension name
	Unregister(name string)

	// Supported reports whether a handler is registered for name.
	//
	// Parameters:
	//   - name: the extension name
	//
	// Returns:
	//   - bool: true if registered
	Supported(name string) bool

	// Names returns the registered extension names in sorted order.
	//
	// Returns:
	//   - []string: the registered names
	Names() []string

	// Enabled reports whether name is registered and declared in the document's extensionsUsed.
	//
	// Parameters:
	//   - doc: the document
	//   - name: the extension name
	//
	// Returns:
	//   - bool: true if the extension is active for this document
	Enabled(doc *gltf.Document, name string) bool

	// CheckRequired logs a warning for every extensionsRequired entry without a handler and returns those names.
	//
	// Parameters:
	//   - doc: the document
	//
	// Returns:
	//   - []string: the unsupported required extensions
	CheckRequired(doc *gltf.Document) []string

	// ParseMaterial runs every registered ParseMaterial callback for the extensions present on a material.
	// The names of the extensions that were handled are appended to mat.Extensions.
	//
	// Parameters:
	//   - ctx: the extension context
	//   - exts: the material's extension payloads
	//   - mat: the material to update
	//
	// Returns:
	//   - error: the first handler error
	ParseMaterial(ctx *ExtensionContext, exts gltf.Extensions, mat *common.ImportedMaterial) error

	// ParsePrimitive runs every registered ParsePrimitive callback for the extensions present on a primitive.
	//
	// Parameters:
	//   - ctx: the extension context
	//   - prim: the primitive
	//
	// Returns:
	//   - error: the first handler error
	ParsePrimitive(ctx *ExtensionContext, prim *gltf.Primitive) error

	// LoadImage asks registered LoadImage callbacks for an image override of a texture.
	//
	// Parameters:
	//   - ctx: the extension context
	//   - tex: the texture
	//
	// Returns:
	//   - int: the image index to use
	//   - bool: true if a handler supplied an image
	//   - error: the first handler error
	LoadImage(ctx *ExtensionContext, tex *gltf.Texture) (int, bool, error)
}

var _ ExtensionRegistry = &extensionRegistryImpl{}

// NewExtensionRegistry creates an empty registry.
//
// Returns:
//   - ExtensionRegistry: the registry
func NewExtensionRegistry() ExtensionRegistry {
	return &extensionRegistryImpl{
		handlers: make(map[string]ExtensionHandler),
	}
}

// NewDefaultExtensionRegistry creates a registry holding the built-in handlers.
//
// Returns:
//   - ExtensionRegistry: the registry
func NewDefaultExtensionRegistry() ExtensionRegistry {
	r := NewExtensionRegistry()
	r.Register(ExtMaterialsUnlit, ExtensionHandler{ParseMaterial: parseUnlit})
	r.Register(ExtMaterialsEmissiveStrength, ExtensionHandler{ParseMaterial: parseEmissiveStrength})
	r.Register(ExtMaterialsSpecularGlossiness, ExtensionHandler{ParseMaterial: parseSpecularGlossiness})
	r.Register(ExtMaterialsTransmission, ExtensionHandler{ParseMaterial: parseTransmission})
	r.Register(ExtTextureBasisu, ExtensionHandler{LoadImage: loadSourceOverride})
	r.Register(ExtTextureWebP, ExtensionHandler{LoadImage: loadSourceOverride})
	r.Register(ExtMeshQuantization, ExtensionHandler{})
	r.Register(ExtDracoMeshCompression, ExtensionHandler{ParsePrimitive: rejectDraco})
	return r
}

func (r *extensionRegistryImpl) Register(name string, handler ExtensionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

func (r *extensionRegistryImpl) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

func (r *extensionRegistryImpl) Supported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

func (r *extensionRegistryImpl) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *extensionRegistryImpl) Enabled(doc *gltf.Document, name string) bool {
	return doc != nil && slices.Contains(doc.ExtensionsUsed, name) && r.Supported(name)
}

func (r *extensionRegistryImpl) CheckRequired(doc *gltf.Document) []string {
	var missing []string
	for _, name := range doc.ExtensionsRequired {
		if !r.Supported(name) {
			log.Printf("[Loader] required extension %s is not supported; continuing without it", name)
			missing = append(missing, name)
		}
	}
	return missing
}

// present returns the handlers for the extensions in exts, sorted by name so dispatch order is stable.
func (r *extensionRegistryImpl) present(exts gltf.Extensions) []string {
	names := make([]string, 0, len(exts))
	r.mu.RLock()
	for name := range exts {
		if _, ok := r.handlers[name]; ok {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *extensionRegistryImpl) handler(name string) ExtensionHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

func (r *extensionRegistryImpl) ParseMaterial(ctx *ExtensionContext, exts gltf.Extensions, mat *common.ImportedMaterial) error {
	for _, name := range r.present(exts) {
		h := r.handler(name)
		if h.ParseMaterial == nil {
			continue
		}
		if err := h.ParseMaterial(ctx, exts[name], mat); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		mat.Extensions = append(mat.Extensions, name)
	}
	return nil
}

func (r *extensionRegistryImpl) ParsePrimitive(ctx *ExtensionContext, prim *gltf.Primitive) error {
	for _, name := range r.present(prim.Extensions) {
		h := r.handler(name)
		if h.ParsePrimitive == nil {
			continue
		}
		if err := h.ParsePrimitive(ctx, prim.Extensions[name], prim); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (r *extensionRegistryImpl) LoadImage(ctx *ExtensionContext, tex *gltf.Texture) (int, bool, error) {
	for _, name := range r.present(tex.Extensions) {
		h := r.handler(name)
		if h.LoadImage == nil {
			continue
		}
		img, ok, err := h.LoadImage(ctx, tex.Extensions[name], tex)
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", name, err)
		}
		if ok {
			return img, true, nil
		}
	}
	return 0, false, nil
}

// --- Built-in handlers ---

func parseUnlit(_ *ExtensionContext, _ json.RawMessage, mat *common.ImportedMaterial) error {
	mat.Unlit = true
	return nil
}

func parseEmissiveStrength(_ *ExtensionContext, raw json.RawMessage, mat *common.ImportedMaterial) error {
	var ext struct {
		EmissiveStrength *float32 `json:"emissiveStrength"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return err
	}
	if ext.EmissiveStrength != nil {
		mat.EmissiveStrength = *ext.EmissiveStrength
	}
	return nil
}

func parseTransmission(ctx *ExtensionContext, raw json.RawMessage, mat *common.ImportedMaterial) error {
	var ext struct {
		TransmissionFactor *float32 `json:"transmissionFactor"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return err
	}
	if ext.TransmissionFactor != nil {
		mat.Transmission = *ext.TransmissionFactor
	}
	return nil
}

// parseSpecularGlossiness maps the specular-glossiness workflow onto the metallic-roughness fields:
// diffuse becomes base color, glossiness becomes 1-roughness and the material is treated as a dielectric.
func parseSpecularGlossiness(ctx *ExtensionContext, raw json.RawMessage, mat *common.ImportedMaterial) error {
	var ext struct {
		DiffuseFactor    *[4]float32       `json:"diffuseFactor"`
		DiffuseTexture   *gltf.TextureInfo `json:"diffuseTexture"`
		GlossinessFactor *float32          `json:"glossinessFactor"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return err
	}

	mat.BaseColor = [4]float32{1, 1, 1, 1}
	if ext.DiffuseFactor != nil {
		mat.BaseColor = *ext.DiffuseFactor
	}
	mat.Metallic = 0
	mat.Roughness = 0
	if ext.GlossinessFactor != nil {
		mat.Roughness = 1 - *ext.GlossinessFactor
	}

	if ext.DiffuseTexture != nil && mat.DiffuseTexture == nil && ctx != nil && ctx.LoadTexture != nil {
		tex, err := ctx.LoadTexture(*ext.DiffuseTexture)
		if err != nil {
			return fmt.Errorf("diffuse texture: %w", err)
		}
		mat.DiffuseTexture = tex
	}
	return nil
}

// loadSourceOverride reads {"source": N} from a texture extension payload.
func loadSourceOverride(ctx *ExtensionContext, raw json.RawMessage, _ *gltf.Texture) (int, bool, error) {
	var ext struct {
		Source *int `json:"source"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return 0, false, err
	}
	if ext.Source == nil {
		return 0, false, nil
	}
	if ctx != nil && ctx.Document != nil && (*ext.Source < 0 || *ext.Source >= len(ctx.Document.Images)) {
		return 0, false, gltf.NewFormatError(gltf.KindReference, "texture source image out of range (have %d)", len(ctx.Document.Images)).AtIndex(*ext.Source)
	}
	return *ext.Source, true, nil
}

func rejectDraco(_ *ExtensionContext, _ json.RawMessage, _ *gltf.Primitive) error {
	return ErrDracoUnsupported
}
