// Command glbinfo prints the structure of a GLB or glTF file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/engine/exporter"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/loader"

	"github.com/davecgh/go-spew/spew"
)

// previewElements is how many accessor elements -accessor prints without -dump.
const previewElements = 8

var spewConfig = &spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true}

func main() {
	var dump bool
	var accessor int
	var export string
	flag.BoolVar(&dump, "dump", false, "Dump the decoded document")
	flag.IntVar(&accessor, "accessor", -1, "Decode and print one accessor")
	flag.StringVar(&export, "export", "", "Import the file and write it back out as GLB to this path")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: glbinfo [-dump] [-accessor N] [-export out.glb] file\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	c, err := gltf.ParseContainer(data)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	printSummary(os.Stdout, path, c)
	if dump {
		spewConfig.Fdump(os.Stdout, c.Document)
	}

	if accessor >= 0 {
		if err := printAccessor(os.Stdout, c, accessor, dump); err != nil {
			log.Fatalf("accessor %d: %v", accessor, err)
		}
	}

	if export != "" {
		if err := exportFile(path, data, export); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("exported %s\n", export)
	}
}

func printSummary(w io.Writer, path string, c *gltf.Container) {
	doc := c.Document
	if c.IsGLB {
		fmt.Fprintf(w, "%s: GLB version %d, declared length %d, %d BIN chunk(s)\n", path, c.Version, c.DeclaredLength, len(c.BinaryChunks))
	} else {
		fmt.Fprintf(w, "%s: glTF JSON\n", path)
	}
	fmt.Fprintf(w, "asset: version %s, generator %q\n", doc.Asset.Version, doc.Asset.Generator)
	fmt.Fprintf(w, "scenes %d, nodes %d, meshes %d, materials %d\n", len(doc.Scenes), len(doc.Nodes), len(doc.Meshes), len(doc.Materials))
	fmt.Fprintf(w, "accessors %d, bufferViews %d, buffers %d\n", len(doc.Accessors), len(doc.BufferViews), len(doc.Buffers))
	fmt.Fprintf(w, "textures %d, images %d, samplers %d\n", len(doc.Textures), len(doc.Images), len(doc.Samplers))

	if len(doc.ExtensionsUsed) > 0 {
		fmt.Fprintf(w, "extensionsUsed: %s\n", strings.Join(doc.ExtensionsUsed, ", "))
	}
	if missing := loader.NewDefaultExtensionRegistry().CheckRequired(doc); len(missing) > 0 {
		fmt.Fprintf(w, "unsupported required extensions: %s\n", strings.Join(missing, ", "))
	}
}

func printAccessor(w io.Writer, c *gltf.Container, index int, all bool) error {
	arr, err := gltf.NewAccessorResolver(c).Resolve(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "accessor %d: %s %s x %d", index, arr.Type, arr.ComponentType, arr.Count)
	if arr.Normalized {
		fmt.Fprint(w, " normalized")
	}
	fmt.Fprintln(w)

	values := arr.Float32s()
	n := arr.ComponentCount()
	limit := arr.Count
	if !all {
		limit = min(limit, previewElements)
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(w, "  [%d] %v\n", i, values[i*n:(i+1)*n])
	}
	if limit < arr.Count {
		fmt.Fprintf(w, "  ... %d more\n", arr.Count-limit)
	}
	return nil
}

func exportFile(path string, data []byte, out string) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := loader.NewLoader(loader.BackendTypeGLTF).LoadBytes(name, data)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := exporter.ExportGLB(f, m.Imported()); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", out, err)
	}
	return f.Close()
}
