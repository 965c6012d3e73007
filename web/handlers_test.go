package web

import (
	"bytes"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"badc0de.net/pkg/go-ja2/slf"
	"badc0de.net/pkg/go-ja2/stci"
	"badc0de.net/pkg/go-ja2/ttesting"
	"badc0de.net/pkg/go-ja2/vfs"
)

func encodeSTCI(t *testing.T, c stci.Container) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := stci.Encode(buf, c); err != nil {
		t.Fatalf("stci.Encode: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	palette := make(stci.Palette, 256)
	palette[1] = stci.PaletteColor{R: 0xFF}
	anim := &stci.Indexed{Palette: palette, SubImages: []stci.SubImage{
		{Width: 2, Height: 2, Pixels: []uint8{1, 1, 1, 1}, AppData: &stci.AppData{NumberOfFrames: 2}},
		{Width: 1, Height: 1, OffsetX: 2, OffsetY: 2, Pixels: []uint8{1}, AppData: &stci.AppData{}},
	}}
	rgb := &stci.RGB{Width: 2, Height: 1, Pixels: []stci.RGB565{0xFFFF, 0}}

	buf := &bytes.Buffer{}
	if err := slf.Pack(buf, "Anims.slf", "anims", []slf.File{
		{Name: "walk.sti", Data: encodeSTCI(t, anim)},
		{Name: "title.sti", Data: encodeSTCI(t, rgb)},
		{Name: "broken.sti", Data: []byte("STCI but not really")},
	}); err != nil {
		t.Fatalf("slf.Pack: %v", err)
	}
	lib, err := slf.Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("slf.Open: %v", err)
	}
	fs := vfs.New()
	fs.AddLayer(vfs.NewLibraryLayer("Anims.slf", lib))

	r := mux.NewRouter()
	NewHandler(fs).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnimationAsGIF(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/asset/ANIMS/Walk.sti", nil)
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", resp.Header.Get("Content-Type"), "image/gif")
	g, err := gif.DecodeAll(resp.Body)
	if err != nil {
		t.Fatalf("gif.DecodeAll: %v", err)
	}
	ttesting.AssertEqualInt(t, "frames", len(g.Image), 2)
	ttesting.AssertEqualInt(t, "width", g.Image[0].Bounds().Dx(), 3)

	etag := resp.Header.Get("ETag")
	again := get(t, srv.URL+"/asset/anims/walk.sti", http.Header{"If-None-Match": {etag}})
	ttesting.AssertEqualInt(t, "not modified", again.StatusCode, http.StatusNotModified)
}

func TestFrameAsPNG(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/asset/anims/walk.sti?frame=1", nil)
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("frame 1 (0,0) alpha %d; want transparent", a)
	}
	if r, _, _, a := img.At(2, 2).RGBA(); r != 0xFFFF || a != 0xFFFF {
		t.Errorf("frame 1 (2,2) not opaque red")
	}

	ttesting.AssertEqualInt(t, "frame out of range", get(t, srv.URL+"/asset/anims/walk.sti?frame=2", nil).StatusCode, http.StatusNotFound)
	ttesting.AssertEqualInt(t, "bad frame", get(t, srv.URL+"/asset/anims/walk.sti?frame=x", nil).StatusCode, http.StatusBadRequest)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)
	ttesting.AssertEqualInt(t, "texture", get(t, srv.URL+"/asset/anims/title.sti", nil).StatusCode, http.StatusOK)
	ttesting.AssertEqualInt(t, "missing", get(t, srv.URL+"/asset/anims/run.sti", nil).StatusCode, http.StatusNotFound)
	ttesting.AssertEqualInt(t, "broken", get(t, srv.URL+"/asset/anims/broken.sti", nil).StatusCode, http.StatusInternalServerError)
}

func TestDir(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv.URL+"/dir/anims", nil)
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	buf := &bytes.Buffer{}
	buf.ReadFrom(resp.Body)
	ttesting.AssertEqualString(t, "listing", buf.String(), "broken.sti\ntitle.sti\nwalk.sti\n")

	ttesting.AssertEqualInt(t, "missing dir", get(t, srv.URL+"/dir/maps", nil).StatusCode, http.StatusNotFound)
}
