// Command h5ls lists the contents of an HDF5 file and optionally
// dumps a dataset's values.
//
// Usage:
//
//	h5ls [-v] [-d /path/to/dataset] file.h5
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/gridframe/hdf5"
)

func main() {
	verbose := flag.Bool("v", false, "log structural warnings and debug detail")
	dump := flag.String("d", "", "dump the dataset at this path instead of listing")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: h5ls [-v] [-d dataset] file.h5")
		os.Exit(2)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	f, err := hdf5.Open(flag.Arg(0), hdf5.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("open failed")
	}
	defer f.Close()

	if *dump != "" {
		if err := dumpDataset(f, *dump); err != nil {
			log.Fatal().Err(err).Msg("dump failed")
		}
		return
	}
	if err := listTree(f, "/", 0); err != nil {
		log.Fatal().Err(err).Msg("listing failed")
	}
}

func listTree(f *hdf5.File, path string, depth int) error {
	children, err := f.List(path)
	if err != nil {
		return err
	}
	for _, name := range children {
		childPath := path + name
		if path != "/" {
			childPath = path + "/" + name
		}
		kind, err := f.ObjectType(childPath)
		if err != nil {
			return err
		}

		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}
		switch kind {
		case hdf5.KindGroup:
			fmt.Printf("%s%s/\n", indent, name)
			if err := listTree(f, childPath, depth+1); err != nil {
				return err
			}
		case hdf5.KindDataset:
			d, err := f.Dataset(childPath)
			if err != nil {
				return err
			}
			fmt.Printf("%s%s  %v  %s  %s\n", indent, name, d.Shape(), d.Datatype(), d.Layout())
		default:
			fmt.Printf("%s%s  (unknown)\n", indent, name)
		}
	}
	return nil
}

func dumpDataset(f *hdf5.File, path string) error {
	d, err := f.Dataset(path)
	if err != nil {
		return err
	}
	values, err := d.Read()
	if err != nil {
		return err
	}
	fmt.Printf("%s  shape=%v  type=%s  layout=%s\n", path, d.Shape(), d.Datatype(), d.Layout())
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}
