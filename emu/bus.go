package emu

// SMSBus adapts Memory and IO to the Bus interface the CPU interpreter
// drives, without exposing the cartridge/VDP/PSG details any further.
type SMSBus struct {
	Mem *Memory
	IO  *IO
}

func NewSMSBus(mem *Memory, io *IO) *SMSBus {
	return &SMSBus{Mem: mem, IO: io}
}

func (b *SMSBus) Read(addr uint16) uint8       { return b.Mem.Get(addr) }
func (b *SMSBus) Write(addr uint16, val uint8) { b.Mem.Set(addr, val) }
func (b *SMSBus) In(port uint8) uint8          { return b.IO.In(port) }
func (b *SMSBus) Out(port uint8, val uint8)    { b.IO.Out(port, val) }
