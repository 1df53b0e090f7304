package main

import (
	"path/filepath"

	"weightgen/internal/config"
	"weightgen/internal/derive"
	"weightgen/internal/generate"
	"weightgen/internal/golang"
	"weightgen/internal/rust"
)

// siteHost is a generate.Host that can also list its annotated functions.
type siteHost interface {
	generate.Host
	Pipeline() *derive.Pipeline
	Sites(path string, src []byte) ([]derive.Site, error)
}

func rustOptions(c *config.Config) rust.Options {
	return rust.Options{
		Attribute:     c.Annotation.RustAttribute,
		Prefix:        c.Weight.Prefix,
		WeightType:    c.Weight.Type,
		Suffix:        c.Output.Suffix,
		LenientTuples: c.Annotation.LenientTuples,
	}
}

func newHosts(c *config.Config) []siteHost {
	return []siteHost{
		golang.NewHost(goOptions(c)),
		rust.NewHost(rustOptions(c)),
	}
}

func newGenerator(c *config.Config, check bool) (*generate.Generator, error) {
	var hosts []generate.Host
	for _, h := range newHosts(c) {
		hosts = append(hosts, h)
	}
	return generate.New(generate.Options{
		Workers:   c.Generate.Workers,
		CacheSize: c.Generate.CacheSize,
		Check:     check,
	}, hosts...)
}

// hostFor returns the host handling path's extension.
func hostFor(c *config.Config, path string) (siteHost, bool) {
	ext := filepath.Ext(path)
	for _, h := range newHosts(c) {
		for _, e := range h.Extensions() {
			if e == ext {
				return h, true
			}
		}
	}
	return nil, false
}

// resolve makes relative arguments relative to the workspace.
func resolve(args []string) []string {
	if workspace == "" {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		if filepath.IsAbs(a) {
			out[i] = a
		} else {
			out[i] = filepath.Join(workspace, a)
		}
	}
	return out
}
