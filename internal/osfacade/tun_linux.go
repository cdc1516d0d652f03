//go:build linux

package osfacade

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const tunDevicePath = "/dev/net/tun"

// TunDevice is a non-blocking point-to-point tun interface, created via
// TUNSETIFF against /dev/net/tun and configured through a throwaway
// AF_INET socket's SIOC* ioctls, the same two-descriptor dance the
// original Linux::Tun wrapper performed.
type TunDevice struct {
	fd     int
	ctlFd  int
	ifName string
}

// OpenTun creates (or attaches to) the named tun interface ifName. If
// ifName is empty the kernel assigns a name, reflected back into the
// returned device's Name().
func OpenTun(ifName string) (*TunDevice, error) {
	fd, err := unix.Open(tunDevicePath, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("osfacade: open %s: %w", tunDevicePath, err)
	}

	req, err := unix.NewIfreq(ifName)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: ifreq(%s): %w", ifName, err)
	}
	req.SetUint16(unix.IFF_TUN)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, req); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: TUNSETIFF: %w", err)
	}

	ctlFd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("osfacade: control socket: %w", err)
	}

	return &TunDevice{fd: fd, ctlFd: ctlFd, ifName: req.Name()}, nil
}

func (t *TunDevice) Fd() int      { return t.fd }
func (t *TunDevice) Name() string { return t.ifName }

func (t *TunDevice) ifreq() (*unix.Ifreq, error) {
	return unix.NewIfreq(t.ifName)
}

func (t *TunDevice) SetPointToPoint(enable bool) error {
	req, err := t.ifreq()
	if err != nil {
		return err
	}
	flags, err := t.currentFlags(req)
	if err != nil {
		return err
	}
	if enable {
		flags |= unix.IFF_POINTOPOINT
		flags &^= unix.IFF_BROADCAST | unix.IFF_MULTICAST
	} else {
		flags &^= unix.IFF_POINTOPOINT
	}
	req.SetUint16(flags)
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCSIFFLAGS, req); err != nil {
		return fmt.Errorf("osfacade: SIOCSIFFLAGS(p2p): %w", err)
	}
	return nil
}

func (t *TunDevice) SetMTU(mtu int) error {
	req, err := t.ifreq()
	if err != nil {
		return err
	}
	req.SetUint32(uint32(mtu))
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCSIFMTU, req); err != nil {
		return fmt.Errorf("osfacade: SIOCSIFMTU: %w", err)
	}
	return nil
}

func (t *TunDevice) SetAddr(addr, mask [4]byte) error {
	req, err := t.ifreq()
	if err != nil {
		return err
	}
	if err := setSockaddrIn(req, addr); err != nil {
		return err
	}
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCSIFADDR, req); err != nil {
		return fmt.Errorf("osfacade: SIOCSIFADDR: %w", err)
	}

	req, err = t.ifreq()
	if err != nil {
		return err
	}
	if err := setSockaddrIn(req, mask); err != nil {
		return err
	}
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCSIFNETMASK, req); err != nil {
		return fmt.Errorf("osfacade: SIOCSIFNETMASK: %w", err)
	}
	return nil
}

func (t *TunDevice) SetUp(up bool) error {
	req, err := t.ifreq()
	if err != nil {
		return err
	}
	flags, err := t.currentFlags(req)
	if err != nil {
		return err
	}
	if up {
		flags |= unix.IFF_UP | unix.IFF_RUNNING
	} else {
		flags &^= unix.IFF_UP | unix.IFF_RUNNING
	}
	req.SetUint16(flags)
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCSIFFLAGS, req); err != nil {
		return fmt.Errorf("osfacade: SIOCSIFFLAGS(up=%v): %w", up, err)
	}
	return nil
}

func (t *TunDevice) currentFlags(req *unix.Ifreq) (uint16, error) {
	if err := unix.IoctlIfreq(t.ctlFd, unix.SIOCGIFFLAGS, req); err != nil {
		return 0, fmt.Errorf("osfacade: SIOCGIFFLAGS: %w", err)
	}
	return req.Uint16(), nil
}

// setSockaddrIn writes a struct sockaddr_in (AF_INET, port 0, addr) into
// the ifreq's union, matching what SIOCSIFADDR/SIOCSIFNETMASK expect.
func setSockaddrIn(req *unix.Ifreq, addr [4]byte) error {
	return req.SetInet4Addr(addr[:])
}

func (t *TunDevice) Recv() (TunFrame, error) {
	buf := make([]byte, 65536)
	n, err := unix.Read(t.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return TunFrame{}, nil
		}
		return TunFrame{}, fmt.Errorf("osfacade: tun read: %w", err)
	}
	return TunFrame{Buf: buf[:n]}, nil
}

func (t *TunDevice) Send(f TunFrame) error {
	_, err := unix.Write(t.fd, f.Buf)
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("osfacade: tun write: %w", err)
	}
	return nil
}

func (t *TunDevice) Close() error {
	err1 := unix.Close(t.fd)
	err2 := unix.Close(t.ctlFd)
	if err1 != nil {
		return fmt.Errorf("osfacade: close tun fd: %w", err1)
	}
	if err2 != nil {
		return fmt.Errorf("osfacade: close tun ctl fd: %w", err2)
	}
	return nil
}
