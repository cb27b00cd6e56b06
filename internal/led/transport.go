package led

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Transport carries an encoded frame to the strip. Write must send all of p
// as one transfer or fail.
type Transport interface {
	Write(p []byte) error
}

// ConnTransport sends frames over a periph SPI connection.
type ConnTransport struct {
	port  spi.PortCloser
	conn  spi.Conn
	maxTx int
}

// OpenSPI connects p in mode 0 with 8 bit words at rate. The returned
// transport owns p and closes it on Close.
func OpenSPI(p spi.PortCloser, rate physic.Frequency) (*ConnTransport, error) {
	c, err := p.Connect(rate, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "spi connect at %s", rate)
	}
	t := &ConnTransport{port: p, conn: c}
	if l, ok := c.(conn.Limits); ok {
		t.maxTx = l.MaxTxSize()
	}
	return t, nil
}

// Write sends p in a single Tx. Frames larger than the port's transfer limit
// are refused rather than split, since a gap mid-frame can latch the strip.
func (t *ConnTransport) Write(p []byte) error {
	if t.maxTx > 0 && len(p) > t.maxTx {
		return fmt.Errorf("frame of %d bytes exceeds spi transfer limit %d (raise spidev bufsiz)", len(p), t.maxTx)
	}
	return t.conn.Tx(p, nil)
}

func (t *ConnTransport) String() string {
	return fmt.Sprintf("spi{%s}", t.port)
}

func (t *ConnTransport) Close() error {
	return t.port.Close()
}
