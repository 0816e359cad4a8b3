package receipt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Printer sends a rendered receipt somewhere physical or virtual.
type Printer interface {
	Print(ctx context.Context, orderID, text string) error
}

// SpoolPrinter drops each receipt as a text file in Dir, where a print
// daemon (or the desktop shell) picks it up.
type SpoolPrinter struct {
	Dir string
	Now func() time.Time
}

func (p *SpoolPrinter) Print(ctx context.Context, orderID, text string) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	name := fmt.Sprintf("%s-%s.txt", now().UTC().Format("20060102T150405"), ShortID(orderID))
	tmp := filepath.Join(p.Dir, "."+name)
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return err
	}
	// rename supaya daemon tidak baca file setengah jadi
	return os.Rename(tmp, filepath.Join(p.Dir, name))
}

// LogPrinter is the fallback when no spool directory is configured.
type LogPrinter struct{ Log *zap.Logger }

func (p *LogPrinter) Print(ctx context.Context, orderID, text string) error {
	p.Log.Info("receipt", zap.String("order_id", orderID), zap.String("text", text))
	return nil
}

// PrintAsync fires the print job and returns immediately. Failures are only logged.
func PrintAsync(p Printer, orderID, text string, log *zap.Logger) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Print(ctx, orderID, text); err != nil {
			log.Warn("print receipt failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}()
}
