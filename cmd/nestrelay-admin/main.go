// Command nestrelay-admin exports and imports a relay's event store
// directly against its data directory, for backups and migrations.
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/alexflint/go-arg"

	"nestrelay.dev/pkg/config"
	"nestrelay.dev/pkg/database"
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/utils/chk"
	"nestrelay.dev/pkg/utils/context"
	"nestrelay.dev/pkg/utils/log"
)

type args struct {
	Export  *exportCmd `arg:"subcommand:export" help:"write every stored event to stdout as newline-delimited JSON"`
	Import  *importCmd `arg:"subcommand:import" help:"read newline-delimited JSON events from stdin"`
	DataDir string     `arg:"--data-dir,env:NESTR_DATA_DIR" help:"path to the relay's Badger data directory"`
}

type exportCmd struct{}
type importCmd struct{}

func main() {
	var a args
	p := arg.MustParse(&a)

	dataDir := a.DataDir
	if dataDir == "" {
		cfg, err := config.New()
		if chk.E(err) {
			os.Exit(1)
		}
		dataDir = cfg.DataDir
	}

	db, err := database.Open(dataDir)
	if chk.E(err) {
		os.Exit(1)
	}
	defer db.Close()

	c := context.Bg()
	switch {
	case a.Export != nil:
		chk.E(db.Export(c, ndjsonWriter{os.Stdout}))
	case a.Import != nil:
		n, err := db.Import(c, ndjsonReader{json.NewDecoder(os.Stdin)})
		chk.E(err)
		log.I.F("imported %d events", n)
	default:
		p.WriteHelp(os.Stdout)
	}
}

type ndjsonWriter struct{ w io.Writer }

func (n ndjsonWriter) WriteEvent(ev *event.E) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = n.w.Write(b)
	return err
}

type ndjsonReader struct{ dec *json.Decoder }

func (n ndjsonReader) ReadEvent() (*event.E, error) {
	var ev event.E
	if err := n.dec.Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
