package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tuannm99/novaheap/internal"
	"github.com/tuannm99/novaheap/internal/engine"
	"github.com/tuannm99/novaheap/internal/heap"
	"github.com/tuannm99/novaheap/internal/record"
	"github.com/tuannm99/novaheap/internal/relation"
	"github.com/tuannm99/novaheap/internal/storage"
)

func main() {
	flags := pflag.NewFlagSet("heapinspect", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	flags.String("backend", "file", "storage backend: file | leveldb")
	flags.String("dir", "./data", "data directory")
	flags.Int("block-size", storage.DefaultBlockSize, "block size in bytes")
	table := flags.StringP("table", "t", "", "relation to inspect (empty lists tables)")
	rows := flags.BoolP("rows", "r", false, "decode and print every live row")
	dump := flags.Bool("dump", false, "print the slot directory of every block")
	_ = flags.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath, flags)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := engine.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("close database", "err", err)
		}
	}()

	if *table == "" {
		err = listTables(os.Stdout, db)
	} else {
		err = inspect(os.Stdout, db, *table, *rows, *dump)
	}
	if err != nil {
		log.Fatalf("heapinspect: %v", err)
	}
}

// loadConfig layers defaults, the optional file, NOVAHEAP_* env and flags.
func loadConfig(path string, flags *pflag.FlagSet) (*internal.NovaHeapConfig, error) {
	v := internal.NewViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	bind := map[string]string{
		"storage.backend":    "backend",
		"storage.dir":        "dir",
		"storage.block_size": "block-size",
	}
	for key, name := range bind {
		if err := bindChanged(v, key, flags.Lookup(name)); err != nil {
			return nil, err
		}
	}
	return internal.Decode(v)
}

// bindChanged lets an explicit flag override file and env values.
func bindChanged(v *viper.Viper, key string, f *pflag.Flag) error {
	if f == nil || !f.Changed {
		return nil
	}
	return v.BindPFlag(key, f)
}

func listTables(w io.Writer, db *engine.Database) error {
	tables := db.Catalog().Tables()
	return tables.Scan(func(_ relation.Handle, row record.Row) error {
		_, err := fmt.Fprintln(w, row["table_name"].S)
		return err
	})
}

func inspect(w io.Writer, db *engine.Database, name string, withRows, dump bool) error {
	rel, err := db.Catalog().GetTable(name)
	if err != nil {
		return err
	}
	tbl, ok := rel.(*heap.Table)
	if !ok {
		return fmt.Errorf("%s is not a heap table", name)
	}
	if err := tbl.Open(); err != nil {
		return err
	}

	f := tbl.File()
	bs := uint64(f.BlockSize())
	fmt.Fprintf(w, "table %s: %d blocks of %s (%s)\n",
		name, f.Last(), humanize.IBytes(bs), humanize.IBytes(bs*uint64(f.Last())))

	var live, free uint64
	for _, id := range f.BlockIDs() {
		b, err := f.Get(id)
		if err != nil {
			return err
		}
		page, ok := b.(*storage.SlottedPage)
		if !ok {
			return fmt.Errorf("block %d is not a slotted page", id)
		}
		if err := page.Check(); err != nil {
			fmt.Fprintf(w, "block %d: CORRUPT: %v\n", id, err)
			continue
		}
		ids := page.IDs()
		live += uint64(len(ids))
		free += uint64(page.FreeSpace())
		fmt.Fprintf(w, "block %d: %d slots, %d live, %s free\n",
			id, page.NumRecords(), len(ids), humanize.IBytes(uint64(page.FreeSpace())))
		if dump {
			if err := page.Debug(w); err != nil {
				return err
			}
		}

		if !withRows {
			continue
		}
		for _, rid := range ids {
			h := relation.Handle{BlockID: id, RecordID: rid}
			row, err := tbl.Project(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s %v\n", h, row)
		}
	}
	fmt.Fprintf(w, "%s live rows, %s free in total\n", humanize.Comma(int64(live)), humanize.IBytes(free))
	return nil
}
