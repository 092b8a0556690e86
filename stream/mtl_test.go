package stream

import (
	"strings"
	"testing"
)

func TestMTLStreamerLoadMaterialsParsesBlocks(t *testing.T) {
	src := `
# a comment
newmtl brick
Ka 0.2 0.2 0.2
Kd 0.8 0.1 0.1
Ks 1.0 1.0 1.0
Ns 32.0
map_Kd brick.png

newmtl glass
Kd 0.1 0.1 0.9
map_Ka -o 0.5 0.25 glass.png
`
	mats, err := (MTLStreamer{}).LoadMaterials(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadMaterials: have %v, want nil", err)
	}
	if len(mats) != 2 {
		t.Fatalf("LoadMaterials: have %d materials, want 2", len(mats))
	}

	brick := mats[0]
	if brick.Name != "brick" {
		t.Fatalf("LoadMaterials[0].Name: have %q, want %q", brick.Name, "brick")
	}
	if brick.Diffuse != "0.8 0.1 0.1" {
		t.Fatalf("LoadMaterials[0].Diffuse: have %q, want %q", brick.Diffuse, "0.8 0.1 0.1")
	}
	if brick.Texture != "brick.png" {
		t.Fatalf("LoadMaterials[0].Texture: have %q, want %q", brick.Texture, "brick.png")
	}

	glass := mats[1]
	if glass.Texture != "glass.png" {
		t.Fatalf("LoadMaterials[1].Texture: have %q, want %q", glass.Texture, "glass.png")
	}
	if glass.TextureOffsetX != 0.5 || glass.TextureOffsetY != 0.25 {
		t.Fatalf("LoadMaterials[1] texture offset: have (%v, %v), want (0.5, 0.25)",
			glass.TextureOffsetX, glass.TextureOffsetY)
	}
}

func TestMTLStreamerCapabilities(t *testing.T) {
	s := MTLStreamer{}
	if s.Capabilities("mtl")&CapLoadMaterial == 0 {
		t.Fatal("Capabilities(\"mtl\"): missing CapLoadMaterial")
	}
	if s.Capabilities("pkm") != 0 {
		t.Fatalf("Capabilities(\"pkm\"): have %v, want 0", s.Capabilities("pkm"))
	}
}

func TestLoadMaterialsViaRegistry(t *testing.T) {
	mats, err := LoadMaterials("mtl", strings.NewReader("newmtl m\nKd 1 1 1\n"))
	if err != nil {
		t.Fatalf("LoadMaterials: have %v, want nil", err)
	}
	if len(mats) != 1 || mats[0].Name != "m" {
		t.Fatalf("LoadMaterials: have %+v, want one material named \"m\"", mats)
	}
}
