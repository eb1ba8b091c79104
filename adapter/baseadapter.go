package adapter

import (
	"sync"

	"github.com/mironalin/carsense"
)

type BaseAdapter struct {
	name      string
	cfg       *carsense.AdapterConfig
	send      chan string
	recv      chan *carsense.RawResponse
	err       chan error
	closeChan chan struct{}
	once      sync.Once
}

func NewBaseAdapter(name string, cfg *carsense.AdapterConfig) BaseAdapter {
	return BaseAdapter{
		name:      name,
		cfg:       cfg,
		send:      make(chan string, 10),
		recv:      make(chan *carsense.RawResponse, 20),
		err:       make(chan error, 10),
		closeChan: make(chan struct{}),
	}
}

func (base *BaseAdapter) Name() string {
	return base.name
}

func (base *BaseAdapter) Send() chan<- string {
	return base.send
}

func (base *BaseAdapter) Recv() <-chan *carsense.RawResponse {
	return base.recv
}

func (base *BaseAdapter) Err() <-chan error {
	return base.err
}

func (base *BaseAdapter) Close() {
	base.once.Do(func() {
		close(base.closeChan)
	})
}

func (base *BaseAdapter) SetError(err error) {
	select {
	case base.err <- err:
	default:
		base.cfg.OnError(carsense.ErrErrorChannelFull)
	}
}

func (base *BaseAdapter) Deliver(resp *carsense.RawResponse) {
	select {
	case base.recv <- resp:
	default:
		base.SetError(carsense.ErrDroppedResponse)
	}
}
