package main

import (
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
)

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	fin, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if fi, err := fin.Stat(); err == nil {
		log.Printf("reading %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}
	return fin, func() { fin.Close() }, nil
}

// openScan opens a scan stream and decodes its header.
func openScan(path string) (*scan.Reader, *scan.Header, func(), error) {
	r, closer, err := openInput(path)
	if err != nil {
		return nil, nil, nil, err
	}
	sr := scan.NewReader(r)
	h, err := sr.Header()
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	return sr, h, closer, nil
}

// readCycles loads every cycle of a scan into memory.
func readCycles(path string) (*scan.Header, []*scan.Cycle, error) {
	sr, h, closer, err := openScan(path)
	if err != nil {
		return nil, nil, err
	}
	defer closer()
	var cycles []*scan.Cycle
	for {
		c, err := sr.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, err
		}
		cycles = append(cycles, c)
	}
	log.Printf("loaded %s cycles", humanize.Comma(int64(len(cycles))))
	return h, cycles, nil
}

// loadRegistry restores the cached registry and layers the options file
// on top of it.
func loadRegistry() *store.Registry {
	reg := store.NewRegistry()
	if registryPath != "" {
		if err := reg.Load(registryPath); err != nil && !os.IsNotExist(err) {
			log.Printf("could not load %s: %v", registryPath, err)
		}
	}
	if optionsPath != "" {
		f, closer, err := openInput(optionsPath)
		if err != nil {
			panic(err)
		}
		defer closer()
		if err := reg.ImportYAML(f); err != nil {
			panic(err)
		}
	}
	return reg
}

func saveRegistry(reg *store.Registry) {
	if registryPath == "" {
		return
	}
	if err := reg.Save(registryPath); err != nil {
		log.Printf("could not save %s: %v", registryPath, err)
	}
}
