package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/waylink/internal/client"
	"github.com/danmuck/waylink/internal/eventbus"
	"github.com/danmuck/waylink/internal/protocol"
	"github.com/danmuck/waylink/internal/wire"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Bind outputs, seats and shm, then print their events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, stop, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			p := newEventPrinter(cmd.OutOrStdout(), c)
			c.AddEventListener(p)

			reg, globals, err := c.Globals(ctx)
			if err != nil {
				return err
			}
			for _, g := range globals {
				if err := bindWatched(c, reg, g); err != nil {
					return err
				}
			}
			if _, err := c.Sync(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return nil
			case <-c.Done():
				return c.Err()
			}
		},
	}
}

func bindWatched(c *client.Client, reg *protocol.Registry, g client.Global) error {
	var err error
	switch g.Interface {
	case protocol.OutputInterface.Name:
		_, err = client.BindGlobal(c, reg, g, protocol.NewOutput, 0)
	case protocol.SeatInterface.Name:
		_, err = client.BindGlobal(c, reg, g, protocol.NewSeat, 0)
	case protocol.ShmInterface.Name:
		_, err = client.BindGlobal(c, reg, g, protocol.NewShm, 0)
	}
	return err
}

// eventPrinter writes one line per event and grabs a keyboard for every seat
// that reports one.
type eventPrinter struct {
	mu  sync.Mutex
	out io.Writer
	c   *client.Client
}

func newEventPrinter(out io.Writer, c *client.Client) *eventPrinter {
	return &eventPrinter{out: out, c: c}
}

func (p *eventPrinter) HandleEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case *protocol.CallbackDone, *protocol.DisplayDeleteID, *protocol.RegistryGlobal:
		return
	case *protocol.SeatCapabilities:
		if e.Capabilities&protocol.SeatCapabilityKeyboard != 0 {
			p.grabKeyboard(e.Sender())
		}
	case *protocol.KeyboardKeymap:
		// The keymap contents are not needed here.
		_ = unix.Close(e.FD)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s@%d %+v\n", ev.Name(), ev.Sender(), ev)
}

func (p *eventPrinter) HandleDisconnect(err error) {
	log.Debug().Err(err).Msg("wlprobe.watch disconnected")
}

func (p *eventPrinter) grabKeyboard(seatID wire.ObjectID) {
	obj, err := p.c.Lookup(seatID)
	if err != nil {
		return
	}
	seat, err := protocol.As[*protocol.Seat](obj)
	if err != nil {
		return
	}
	kb, err := client.Create(p.c, protocol.NewKeyboard)
	if err != nil {
		log.Warn().Err(err).Msg("wlprobe.watch create keyboard")
		return
	}
	if err := seat.GetKeyboard(kb.ID()); err != nil {
		log.Warn().Err(err).Msg("wlprobe.watch get_keyboard")
	}
}

var _ eventbus.DisconnectHandler = (*eventPrinter)(nil)
