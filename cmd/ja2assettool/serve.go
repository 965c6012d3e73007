package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/go-ja2/paths"
	"badc0de.net/pkg/go-ja2/vfs"
	"badc0de.net/pkg/go-ja2/web"
)

func serveMain(cfg *paths.Config, args []string) error {
	fs := newFlagSet("serve", cfg)
	listenAddress := fs.String("listen_address", ":8080", "http listen address")
	debug := fs.Bool("debug", false, "whether to expose /debug/requests and /debug/events")
	fs.Parse(args)

	v, err := vfs.FromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "building vfs")
	}
	defer v.Close()
	for _, l := range v.Layers() {
		glog.V(1).Infof("serving layer %s", l.Name())
	}

	r := mux.NewRouter()
	web.NewHandler(v).Register(r)
	if *debug {
		// x/net/trace registers itself on http.DefaultServeMux.
		r.PathPrefix("/debug/").Handler(http.DefaultServeMux)
	}

	fmt.Println(figure.NewFigure("ja2 assets", "", true).String())
	glog.Infof("listening on %s", *listenAddress)

	h := handlers.CombinedLoggingHandler(os.Stderr, handlers.CompressHandler(r))
	return http.ListenAndServe(*listenAddress, h)
}
