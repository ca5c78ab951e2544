package statusservice

import (
	"fmt"

	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

// RowLoader provides the current row
type RowLoader interface {
	GetRow(id int) (table.Row, bool, error)
}

// ConnProvider returns subscribed connections
type ConnProvider interface {
	GetConnections(id int) ([]WsConn, bool)
}

// Mapper converts a row to the message sent to subscribers
type Mapper func(table.Row) interface{}

// Notifier pushes the row to subscribers after a status change
type Notifier struct {
	loader RowLoader
	conns  ConnProvider
	mapper Mapper
}

// NewNotifier creates notifier
func NewNotifier(loader RowLoader, conns ConnProvider, mapper Mapper) (*Notifier, error) {
	if loader == nil {
		return nil, errors.New("no row loader")
	}
	if conns == nil {
		return nil, errors.New("no connection provider")
	}
	if mapper == nil {
		mapper = func(r table.Row) interface{} { return r }
	}
	return &Notifier{loader: loader, conns: conns, mapper: mapper}, nil
}

// Notify sends the row to all subscribers of id
func (n *Notifier) Notify(id int) error {
	conns, found := n.conns.GetConnections(id)
	if !found {
		goapp.Log.Debug().Int("ID", id).Msg("no connections found")
		return nil
	}
	r, found, err := n.loader.GetRow(id)
	if err != nil {
		return fmt.Errorf("can't get row %d: %w", id, err)
	}
	if !found {
		return errors.Errorf("no row %d", id)
	}
	msg := n.mapper(r)
	for _, c := range conns {
		if err := sendMsg(c, id, msg); err != nil {
			goapp.Log.Error().Err(err).Send()
		}
	}
	return nil
}

// SendCurrent sends the current row to a new subscriber, a missing row is not an error:
// the client gets the row with the first status change
func (n *Notifier) SendCurrent(c WsConn, id int) error {
	r, found, err := n.loader.GetRow(id)
	if err != nil {
		return fmt.Errorf("can't get row %d: %w", id, err)
	}
	if !found {
		goapp.Log.Debug().Int("ID", id).Msg("no row yet")
		return nil
	}
	return sendMsg(c, id, n.mapper(r))
}

func sendMsg(c WsConn, id int, msg interface{}) error {
	if err := c.WriteJSON(msg); err != nil {
		return fmt.Errorf("can't write to websocket: %w", err)
	}
	goapp.Log.Debug().Int("ID", id).Msg("sent msg to websocket")
	return nil
}
