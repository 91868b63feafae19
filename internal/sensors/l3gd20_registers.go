// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// L3GD20 register addresses.
const (
	RegWhoAmI    byte = 0x0F
	RegCtrl1     byte = 0x20
	RegCtrl2     byte = 0x21
	RegCtrl3     byte = 0x22
	RegCtrl4     byte = 0x23
	RegCtrl5     byte = 0x24
	RegReference byte = 0x25
	RegOutTemp   byte = 0x26
	RegStatus    byte = 0x27
	RegOutXL     byte = 0x28
	RegFIFOCtrl  byte = 0x2E
	RegFIFOSrc   byte = 0x2F
)

// SPI address byte flags.
const (
	spiRead    byte = 0x80
	spiAutoInc byte = 0x40
)

// Power-up configuration: 200 Hz ODR with all axes enabled, 500 dps full
// scale, data-ready on INT2.
const (
	ctrl1Value byte = 0x6F
	ctrl4Value byte = 0x10
	ctrl3Value byte = 0x08
)

// whoAmIValues are the identities of the L3GD20 family parts that share
// this register layout.
var whoAmIValues = map[byte]string{
	0xD3: "L3G4200D",
	0xD4: "L3GD20",
	0xD7: "L3GD20H",
}

// BitField describes one field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is the metadata of one device register.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// Addr parses the hex address.
func (r RegisterInfo) Addr() (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(r.Address, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("register %s: bad address %q: %w", r.Name, r.Address, err)
	}
	return byte(v), nil
}

// L3GD20RegisterMap returns metadata for the L3GD20 registers.
func L3GD20RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: "0x0F", Name: "WHO_AM_I", Description: "Device identification", Access: "R", Default: "0xD4"},

		// Control Registers
		{Address: "0x20", Name: "CTRL_REG1", Description: "Data rate, bandwidth, power and axis enable", Access: "RW", Default: "0x07",
			BitFields: []BitField{
				{Bits: "7:6", Name: "DR", Description: "Output data rate", Values: "0=95Hz, 1=190Hz, 2=380Hz, 3=760Hz"},
				{Bits: "5:4", Name: "BW", Description: "Bandwidth selection", Values: "depends on DR"},
				{Bits: "3", Name: "PD", Description: "Power mode", Values: "0=Power down, 1=Normal"},
				{Bits: "2", Name: "Zen", Description: "Z axis enable", Values: "0=Disabled, 1=Enabled"},
				{Bits: "1", Name: "Xen", Description: "X axis enable", Values: "0=Disabled, 1=Enabled"},
				{Bits: "0", Name: "Yen", Description: "Y axis enable", Values: "0=Disabled, 1=Enabled"},
			}},
		{Address: "0x21", Name: "CTRL_REG2", Description: "High-pass filter configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "5:4", Name: "HPM", Description: "High-pass filter mode", Values: "0=Normal (reset), 1=Reference, 2=Normal, 3=Autoreset"},
				{Bits: "3:0", Name: "HPCF", Description: "High-pass cut-off frequency", Values: "0-9"},
			}},
		{Address: "0x22", Name: "CTRL_REG3", Description: "Interrupt pin configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "I1_Int1", Description: "Interrupt enable on INT1", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "I1_Boot", Description: "Boot status on INT1", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "H_Lactive", Description: "Interrupt active level", Values: "0=High, 1=Low"},
				{Bits: "4", Name: "PP_OD", Description: "Pin drive", Values: "0=Push-pull, 1=Open drain"},
				{Bits: "3", Name: "I2_DRDY", Description: "Data ready on DRDY/INT2", Values: "0=Disabled, 1=Enabled"},
				{Bits: "2", Name: "I2_WTM", Description: "FIFO watermark on DRDY/INT2", Values: "0=Disabled, 1=Enabled"},
				{Bits: "1", Name: "I2_ORun", Description: "FIFO overrun on DRDY/INT2", Values: "0=Disabled, 1=Enabled"},
				{Bits: "0", Name: "I2_Empty", Description: "FIFO empty on DRDY/INT2", Values: "0=Disabled, 1=Enabled"},
			}},
		{Address: "0x23", Name: "CTRL_REG4", Description: "Full scale and data format", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "BDU", Description: "Block data update", Values: "0=Continuous, 1=After MSB and LSB read"},
				{Bits: "6", Name: "BLE", Description: "Endianness", Values: "0=LSB at lower address, 1=MSB at lower address"},
				{Bits: "5:4", Name: "FS", Description: "Full scale", Values: "0=±250°/s, 1=±500°/s, 2/3=±2000°/s"},
				{Bits: "0", Name: "SIM", Description: "SPI mode", Values: "0=4-wire, 1=3-wire"},
			}},
		{Address: "0x24", Name: "CTRL_REG5", Description: "FIFO and filter routing", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "BOOT", Description: "Reboot memory content", Values: "0=Normal, 1=Reboot"},
				{Bits: "6", Name: "FIFO_EN", Description: "FIFO enable", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4", Name: "HPen", Description: "High-pass filter enable", Values: "0=Disabled, 1=Enabled"},
				{Bits: "3:2", Name: "INT1_Sel", Description: "INT1 source selection", Values: ""},
				{Bits: "1:0", Name: "Out_Sel", Description: "Output source selection", Values: ""},
			}},
		{Address: "0x25", Name: "REFERENCE", Description: "Reference value for interrupt generation", Access: "RW", Default: "0x00"},

		// Status and data
		{Address: "0x26", Name: "OUT_TEMP", Description: "Temperature data", Access: "R"},
		{Address: "0x27", Name: "STATUS_REG", Description: "Data status", Access: "R",
			BitFields: []BitField{
				{Bits: "7", Name: "ZYXOR", Description: "X, Y, Z axis data overrun", Values: ""},
				{Bits: "3", Name: "ZYXDA", Description: "X, Y, Z axis new data available", Values: ""},
			}},
		{Address: "0x28", Name: "OUT_X_L", Description: "X-Axis angular rate low byte", Access: "R"},
		{Address: "0x29", Name: "OUT_X_H", Description: "X-Axis angular rate high byte", Access: "R"},
		{Address: "0x2A", Name: "OUT_Y_L", Description: "Y-Axis angular rate low byte", Access: "R"},
		{Address: "0x2B", Name: "OUT_Y_H", Description: "Y-Axis angular rate high byte", Access: "R"},
		{Address: "0x2C", Name: "OUT_Z_L", Description: "Z-Axis angular rate low byte", Access: "R"},
		{Address: "0x2D", Name: "OUT_Z_H", Description: "Z-Axis angular rate high byte", Access: "R"},

		// FIFO
		{Address: "0x2E", Name: "FIFO_CTRL_REG", Description: "FIFO mode and watermark", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:5", Name: "FM", Description: "FIFO mode", Values: "0=Bypass, 1=FIFO, 2=Stream, 3=Stream-to-FIFO, 4=Bypass-to-Stream"},
				{Bits: "4:0", Name: "WTM", Description: "FIFO watermark level", Values: "0-31"},
			}},
		{Address: "0x2F", Name: "FIFO_SRC_REG", Description: "FIFO status", Access: "R",
			BitFields: []BitField{
				{Bits: "7", Name: "WTM", Description: "Watermark status", Values: ""},
				{Bits: "6", Name: "OVRN", Description: "Overrun status", Values: ""},
				{Bits: "5", Name: "EMPTY", Description: "FIFO empty", Values: ""},
				{Bits: "4:0", Name: "FSS", Description: "FIFO stored data level", Values: ""},
			}},
	}
}

// RegisterReader reads a single register.
type RegisterReader interface {
	ReadRegister(addr byte) (byte, error)
}

// DumpRegisters reads every register of the map and writes one line per
// register followed by its decoded bit fields.
func DumpRegisters(r RegisterReader, w io.Writer) error {
	for _, reg := range L3GD20RegisterMap() {
		addr, err := reg.Addr()
		if err != nil {
			return err
		}
		v, err := r.ReadRegister(addr)
		if err != nil {
			return fmt.Errorf("read %s: %w", reg.Name, err)
		}
		fmt.Fprintf(w, "0x%02X %-14s = 0x%02X  %08b  %s\n", addr, reg.Name, v, v, reg.Description)
		for _, f := range reg.BitFields {
			fv, err := fieldValue(v, f.Bits)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", reg.Name, f.Name, err)
			}
			fmt.Fprintf(w, "       %-9s [%s] = %d\n", f.Name, f.Bits, fv)
		}
	}
	return nil
}

// fieldValue extracts the bits "hi:lo" or "n" from v.
func fieldValue(v byte, bits string) (byte, error) {
	hiStr, loStr, found := strings.Cut(bits, ":")
	if !found {
		loStr = hiStr
	}
	hi, err := strconv.Atoi(hiStr)
	if err != nil {
		return 0, fmt.Errorf("bad bit range %q", bits)
	}
	lo, err := strconv.Atoi(loStr)
	if err != nil || lo > hi || hi > 7 || lo < 0 {
		return 0, fmt.Errorf("bad bit range %q", bits)
	}
	width := hi - lo + 1
	return (v >> lo) & byte((1<<width)-1), nil
}
