// Package web serves game assets over HTTP, converted to PNG and GIF on the
// fly.
package web

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-ja2/export"
	"badc0de.net/pkg/go-ja2/graphics"
	"badc0de.net/pkg/go-ja2/vfs"
)

// generation is part of every ETag; bump it if the way images are generated
// changes.
const generation = 1

// FS is the file tree assets are served from. *vfs.VFS implements it.
type FS interface {
	Open(path string) (vfs.File, error)
	ReadDir(dir string) ([]string, error)
}

type Handler struct {
	fs FS
}

// NewHandler constructs a web handler serving assets from fs.
func NewHandler(fs FS) *Handler {
	return &Handler{fs: fs}
}

// Register adds the handler's routes to r:
//
//	/asset/{path}  the converted asset; ?index= selects a set member,
//	               ?frame= a single animation frame as PNG
//	/dir/{path}    a plain text listing of a directory
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/asset/{path:.+}", h.assetHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/dir/{path:.*}", h.dirHandler).Methods(http.MethodGet, http.MethodHead)
}

// queryInt returns the named query parameter, or def if absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.Errorf("%s not a non-negative number", name)
	}
	return v, nil
}

func (h *Handler) readFile(p string) ([]byte, error) {
	f, err := h.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, vfs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, graphics.ErrUnclassified):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) assetHandler(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	index, err := queryInt(r, "index", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	frame, err := queryInt(r, "frame", -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.readFile(p)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	etag := fmt.Sprintf(`W/"asset:%d:%016x:%d:%d"`, generation, xxhash.Sum64(data), index, frame)
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("Cache-Control", "public; max-age=36000") // 36000 = 10h
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	asset, err := graphics.ClassifyReader(bytes.NewReader(data))
	if err != nil {
		glog.Errorf("web: %q: %v", p, err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	img, frames, err := selectOutput(asset, index, frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	buf := &bytes.Buffer{}
	mime := "image/png"
	if frames != nil {
		mime = "image/gif"
		err = export.WriteGIF(buf, frames)
	} else {
		err = export.WritePNG(buf, img)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "public; max-age=36000")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}

// selectOutput picks what to render from asset: an image to be sent as PNG,
// or frames to be sent as GIF. frame < 0 means the whole animation.
func selectOutput(asset graphics.Asset, index, frame int) (image.Image, []graphics.Frame, error) {
	var anim *graphics.Animation
	switch a := asset.(type) {
	case *graphics.Texture:
		if index != 0 {
			return nil, nil, errors.Errorf("texture has no member %d", index)
		}
		return a.Image(), nil, nil
	case *graphics.TextureSet:
		if index >= len(a.Textures()) {
			return nil, nil, errors.Errorf("texture set has %d members, no %d", len(a.Textures()), index)
		}
		return a.Textures()[index].Image(), nil, nil
	case *graphics.Animation:
		if index != 0 {
			return nil, nil, errors.Errorf("animation has no member %d", index)
		}
		anim = a
	case *graphics.AnimationSet:
		if index >= len(a.Animations()) {
			return nil, nil, errors.Errorf("animation set has %d animations, no %d", len(a.Animations()), index)
		}
		anim = a.Animations()[index]
	default:
		return nil, nil, errors.Errorf("unknown asset %T", asset)
	}

	frames, err := anim.Frames()
	if err != nil {
		return nil, nil, err
	}
	if frame < 0 {
		return nil, frames, nil
	}
	if frame >= len(frames) {
		return nil, nil, errors.Errorf("animation has %d frames, no %d", len(frames), frame)
	}
	return frames[frame].Image, nil, nil
}

func (h *Handler) dirHandler(w http.ResponseWriter, r *http.Request) {
	names, err := h.fs.ReadDir(mux.Vars(r)["path"])
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, strings.Join(names, "\n")+"\n")
}
