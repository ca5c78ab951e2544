package statusservice

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper keeps subscribed connections by row id.
// A client subscribes by sending the row id, a new id moves the connection.
type WSConnKeeper struct {
	idConnectionMap map[int]map[WsConn]struct{}
	connectionIDMap map[WsConn]int
	mapLock         *sync.Mutex
	timeOut         time.Duration
	onSubscribe     func(WsConn, int)
}

// NewWSConnKeeper creates manager
func NewWSConnKeeper() *WSConnKeeper {
	res := &WSConnKeeper{}
	res.idConnectionMap = make(map[int]map[WsConn]struct{})
	res.connectionIDMap = make(map[WsConn]int)
	res.mapLock = &sync.Mutex{}
	res.timeOut = time.Minute * 30
	return res
}

// OnSubscribe sets a func invoked after a connection subscribes to the id,
// it is used to send the current row state to the new subscriber
func (kp *WSConnKeeper) OnSubscribe(f func(WsConn, int)) *WSConnKeeper {
	kp.onSubscribe = f
	return kp
}

// syncConn serializes writes, subscription and status change messages come from different goroutines
type syncConn struct {
	WsConn
	lock sync.Mutex
}

func (c *syncConn) WriteJSON(v interface{}) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.WsConn.WriteJSON(v)
}

// HandleConnection loops while connection is active and keeps it under the last received id
func (kp *WSConnKeeper) HandleConnection(wsConn WsConn) error {
	conn := &syncConn{WsConn: wsConn}
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan int)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("ws read")
				return
			}
			msg := strings.TrimSpace(string(message))
			if msg == "" {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			id, err := strconv.Atoi(msg)
			if err != nil || id < 1 {
				goapp.Log.Warn().Str("msg", goapp.Sanitize(msg)).Msg("wrong id")
				continue
			}
			readCh <- id
		}
	}()

	ta := time.After(kp.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case id, ok := <-readCh:
			if !ok {
				break loop
			}
			kp.saveConnection(conn, id)
			if kp.onSubscribe != nil {
				kp.onSubscribe(conn, id)
			}
			ta = time.After(kp.timeOut)
		}
	}
	goapp.Log.Debug().Msg("handleConnection finish")
	return nil
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	id, found := kp.connectionIDMap[conn]
	if found {
		if conns, found := kp.idConnectionMap[id]; found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.idConnectionMap, id)
			}
		}
	}
	delete(kp.connectionIDMap, conn)
}

func (kp *WSConnKeeper) saveConnection(conn WsConn, id int) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connectionIDMap[conn] = id
	conns, found := kp.idConnectionMap[id]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.idConnectionMap[id] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Info().Int("ID", id).Int("active", len(kp.connectionIDMap)).Msg("subscribed")
}

// GetConnections returns connections subscribed to id
func (kp *WSConnKeeper) GetConnections(id int) ([]WsConn, bool) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	cm, found := kp.idConnectionMap[id]
	if !found {
		return nil, false
	}
	res := make([]WsConn, 0, len(cm))
	for c := range cm {
		res = append(res, c)
	}
	return res, true
}
