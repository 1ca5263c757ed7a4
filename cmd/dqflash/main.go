// Command dqflash programs an Intel-HEX firmware image onto a drquad32
// board through its serial bootloader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"

	"github.com/pl4nkton/drquad32/boot"
	"github.com/pl4nkton/drquad32/conn"
	"github.com/pl4nkton/drquad32/serial"
)

var (
	port        = flag.String("port", "/dev/ttyACM0", "serial port device")
	baud        = flag.Int("baud", 115200, "serial baud rate")
	file        = flag.String("file", "", ".hex firmware file name")
	firstSector = flag.Uint("first-sector", 4, "first flash sector to erase")
	sectorCount = flag.Uint("sectors", 8, "number of flash sectors to erase")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *file == "" {
		glog.Exit("Missing --file argument")
	}

	cfg := serial.DefaultConfig(*port)
	cfg.Baud = *baud

	sp, err := serial.Open(cfg)
	if err != nil {
		glog.Exitf("Failed opening port: %v", err)
	}

	c := conn.New(sp)
	defer c.Close()

	// Ctrl-C cancels between protocol steps; the board is left in its
	// bootloader, ready for another attempt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := boot.New(c,
		boot.WithSectors(uint32(*firstSector), uint32(*sectorCount)),
		boot.WithProgress(func(percent int, text string) {
			fmt.Printf("\r%3d%% %-40s", percent, text)
		}),
		boot.WithLogger(glogLogger{}),
	)

	err = p.UpdateFile(ctx, *file)
	fmt.Println()

	switch {
	case err == nil:
		glog.Info("Update complete")
	case errors.Is(err, boot.ErrCancelled):
		glog.Warning("Update cancelled")
	default:
		glog.Exitf("Update failed: %v", err)
	}
}

// glogLogger adapts glog to the boot.Logger interface.
type glogLogger struct{}

func (glogLogger) Debug(msg string, keysAndValues ...interface{}) {
	glog.V(1).Infoln(append([]interface{}{msg}, keysAndValues...)...)
}

func (glogLogger) Info(msg string, keysAndValues ...interface{}) {
	glog.Infoln(append([]interface{}{msg}, keysAndValues...)...)
}

func (glogLogger) Error(msg string, keysAndValues ...interface{}) {
	glog.Errorln(append([]interface{}{msg}, keysAndValues...)...)
}
