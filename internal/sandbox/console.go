package sandbox

import (
	"github.com/dop251/goja_nodejs/console"
	"go.uber.org/zap"
)

// consolePrinter routes the guest console to a zap logger.
type consolePrinter struct {
	log *zap.Logger
}

var _ console.Printer = (*consolePrinter)(nil)

func (p *consolePrinter) Log(s string)   { p.log.Info(s) }
func (p *consolePrinter) Warn(s string)  { p.log.Warn(s) }
func (p *consolePrinter) Error(s string) { p.log.Error(s) }
