//go:build linux

package osfacade

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UARTPort is a non-blocking raw serial character device, opened and
// configured the way the original Linux::Serial wrapper configured
// termios: 8N1, no flow control, no line discipline processing.
type UARTPort struct {
	fd int
}

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

// OpenUART opens path non-blocking and puts it into raw 8N1 mode at baud.
func OpenUART(path string, baud int) (*UARTPort, error) {
	rate, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("osfacade: unsupported baud rate %d", baud)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("osfacade: open %s: %w", path, err)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: tcgetattr %s: %w", path, err)
	}
	cfmakeraw(t)
	t.Cflag &^= unix.CRTSCTS
	t.Cflag |= unix.CLOCAL | unix.CREAD
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: set termios attrs %s: %w", path, err)
	}
	if err := setSpeed(fd, t, rate); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: set baud %s: %w", path, err)
	}
	return &UARTPort{fd: fd}, nil
}

func setSpeed(fd int, t *unix.Termios, rate uint32) error {
	t.Ispeed = rate
	t.Ospeed = rate
	t.Cflag &^= unix.CBAUD
	t.Cflag |= rate & unix.CBAUD
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// cfmakeraw reproduces glibc's cfmakeraw: disable all line-discipline
// processing so bytes pass through unmodified.
func cfmakeraw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR |
		unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func (u *UARTPort) Fd() int { return u.fd }

func (u *UARTPort) Read(buf []byte) (int, error) {
	n, err := unix.Read(u.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, fmt.Errorf("osfacade: uart read: %w", err)
	}
	return n, nil
}

func (u *UARTPort) Write(buf []byte) (int, error) {
	n, err := unix.Write(u.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, fmt.Errorf("osfacade: uart write: %w", err)
	}
	return n, nil
}

func (u *UARTPort) Close() error {
	return unix.Close(u.fd)
}
