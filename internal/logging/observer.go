package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/exp/charmtone"
)

var alertStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(charmtone.Cheeky.Hex())).
	Foreground(lipgloss.Color(charmtone.Smoke.Hex())).
	Padding(0, 1)

// Observer reports generator diagnostics. Warnings are log lines; alerts are
// logged as errors and also drawn as a box on Alerts, when set.
type Observer struct {
	Logger *log.Logger
	Alerts io.Writer
}

func (o *Observer) Warn(msg string, keyvals ...any) {
	o.Logger.Warn(msg, keyvals...)
}

func (o *Observer) Alert(msg string) {
	o.Logger.Error(msg)
	if o.Alerts != nil {
		fmt.Fprintln(o.Alerts, alertStyle.Render("sigtool\n\n"+msg))
	}
}
