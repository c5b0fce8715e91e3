package apex

import (
	"github.com/apex/log"
	"github.com/unkn0wn-root/tagcache"
)

var _ tagcache.Logger = ApexLogger{}

// ApexLogger adapts an apex/log Interface (a *log.Logger or *log.Entry).
type ApexLogger struct{ L log.Interface }

func (a ApexLogger) Debug(msg string, f tagcache.Fields) { a.with(f).Debug(msg) }
func (a ApexLogger) Info(msg string, f tagcache.Fields)  { a.with(f).Info(msg) }
func (a ApexLogger) Warn(msg string, f tagcache.Fields)  { a.with(f).Warn(msg) }
func (a ApexLogger) Error(msg string, f tagcache.Fields) { a.with(f).Error(msg) }

func (a ApexLogger) with(f tagcache.Fields) log.Interface {
	if len(f) == 0 {
		return a.L
	}
	return a.L.WithFields(log.Fields(f))
}
