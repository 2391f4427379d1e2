// Command smplab drives a full SMP pairing session between two in-memory
// peers without any real Bluetooth hardware. It exists to demo and debug
// association model selection: feed it IO capabilities and authentication
// requirements for each side and watch which of Just Works, Numeric
// Comparison, Passkey Entry, or OOB the feature exchange picks, with the
// central side prompted interactively for anything it needs to confirm.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
	"github.com/rigado/ble/linux/hci/smp"
)

func main() {
	app := cli.NewApp()
	app.Name = "smplab"
	app.Usage = "run a Security Manager pairing session between two in-memory peers"
	app.Version = "0.1.0"
	app.Action = pair
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "central-io", Value: "display-yes-no", Usage: "central IO capability: none, display, keyboard, display-yes-no, keyboard-display"},
		cli.StringFlag{Name: "peripheral-io", Value: "display-yes-no", Usage: "peripheral IO capability"},
		cli.BoolFlag{Name: "central-mitm", Usage: "central requests MITM protection"},
		cli.BoolFlag{Name: "peripheral-mitm", Usage: "peripheral requests MITM protection"},
		cli.BoolFlag{Name: "legacy", Usage: "force LE Legacy Pairing instead of Secure Connections"},
		cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "session timeout"},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "smplab:", err)
		os.Exit(1)
	}
}

func ioCapFromFlag(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "none":
		return hci.IoCapNoInputNoOutput, nil
	case "display":
		return hci.IoCapDisplayOnly, nil
	case "keyboard":
		return hci.IoCapKeyboardOnly, nil
	case "display-yes-no":
		return hci.IoCapDisplayYesNo, nil
	case "keyboard-display":
		return hci.IoCapKeyboardDisplay, nil
	default:
		return 0, fmt.Errorf("unrecognized IO capability %q", s)
	}
}

func configFromFlags(ioCap byte, mitm, legacy bool) hci.SmpConfig {
	cfg := hci.DefaultSmpConfig
	cfg.IoCap = ioCap
	cfg.AuthReq = hci.AuthReqBonding
	if !legacy {
		cfg.AuthReq |= hci.AuthReqSC
	}
	if mitm {
		cfg.AuthReq |= hci.AuthReqMitm
	}
	return cfg
}

// consoleAuthData builds an AuthData that prompts stdin for anything the
// session needs from a human: accepting the pairing, confirming a numeric
// comparison value, or reading back a six-digit passkey.
func consoleAuthData(who string) ble.AuthData {
	scanner := bufio.NewScanner(os.Stdin)
	prompt := func(msg string) string {
		fmt.Printf("[%s] %s ", who, msg)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	return ble.AuthData{
		AcceptPairing: func() bool {
			ans := prompt("accept pairing? [Y/n]")
			return ans == "" || strings.EqualFold(ans, "y")
		},
		ConfirmNumeric: func(value int) bool {
			ans := prompt(fmt.Sprintf("confirm both devices show %06d? [Y/n]", value))
			return ans == "" || strings.EqualFold(ans, "y")
		},
		DisplayPasskey: func(passkey int) {
			fmt.Printf("[%s] passkey: %06d\n", who, passkey)
		},
		AssignPasskey: func() int {
			for {
				ans := prompt("enter the six-digit passkey shown on the peer:")
				n, err := strconv.Atoi(ans)
				if err == nil && n >= 0 && n <= 999999 {
					return n
				}
				fmt.Println("not a valid passkey, try again")
			}
		},
	}
}

// loopbackManagers wires two SmpManagers' WritePDU output directly onto
// each other's Handle, standing in for the L2CAP fixed channel a real
// connection would carry SMP PDUs over. The 4-byte L2CAP header each
// session writes is stripped, since Handle takes the SMP payload.
func loopbackManagers(central, peripheral hci.SmpManager) {
	deliver := func(to hci.SmpManager) func([]byte) (int, error) {
		return func(frame []byte) (int, error) {
			if len(frame) < 4 {
				return 0, fmt.Errorf("short L2CAP frame")
			}
			return len(frame), to.Handle(frame[4:])
		}
	}
	central.SetWritePDUFunc(deliver(peripheral))
	peripheral.SetWritePDUFunc(deliver(central))
}

// loopbackEncryption simulates the controller-to-controller handshake that
// starting link encryption triggers: the central's command raises the
// peripheral's LE_LONG_TERM_KEY_REQUEST, and the peripheral's reply
// completes the command status both sides are waiting on. The
// peripheral's own status is queued before the reply returns, so it is
// ahead of any key PDU the central sends once its status arrives.
func loopbackEncryption(central, peripheral hci.SmpManager) {
	central.SetEncryptFunc(func(hci.BondInfo) error {
		go peripheral.HandleLongTermKeyRequest()
		return nil
	})
	peripheral.SetLongTermKeyReplyFunc(func([]byte) error {
		_ = peripheral.HandleCommandStatus(nil)
		go central.HandleCommandStatus(nil)
		return nil
	})
}

func pair(c *cli.Context) error {
	centralIOCap, err := ioCapFromFlag(c.String("central-io"))
	if err != nil {
		return err
	}
	peripheralIOCap, err := ioCapFromFlag(c.String("peripheral-io"))
	if err != nil {
		return err
	}

	legacy := c.Bool("legacy")
	centralCfg := configFromFlags(centralIOCap, c.Bool("central-mitm"), legacy)
	peripheralCfg := configFromFlags(peripheralIOCap, c.Bool("peripheral-mitm"), legacy)

	log := ble.GetLogger()
	factory := smp.NewSmpFactory(log)
	central := factory.Create(centralCfg)
	peripheral := factory.Create(peripheralCfg)

	central.InitContext([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16}, 0x00, 0x00)
	peripheral.InitContext([]byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16}, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, 0x00, 0x00)

	loopbackManagers(central, peripheral)
	loopbackEncryption(central, peripheral)

	fmt.Println("pairing as central; the peripheral accepts Just Works-style prompts automatically")
	err = central.Pair(consoleAuthData("central"), c.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("pairing failed: %w", err)
	}

	legacyUsed, stk := central.LegacyPairingInfo()
	if legacyUsed {
		fmt.Printf("pairing succeeded (LE Legacy Pairing), STK=%x\n", stk)
		return nil
	}
	fmt.Println("pairing succeeded (LE Secure Connections)")
	return nil
}
