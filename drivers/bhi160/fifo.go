package bhi160

// ReadFIFO reads up to len(buf) pending FIFO bytes and returns the filled
// prefix. When nothing is pending no FIFO transaction is issued.
//
// A short buf truncates the transfer; the remainder stays in the FIFO but the
// device may then report a record split across two reads. Size buf to the
// FIFO (or use a Decoder across reads) to avoid that.
func (d *Device) ReadFIFO(buf []byte) ([]byte, error) {
	pending, err := d.Pending()
	if err != nil {
		return nil, err
	}
	n := min(len(buf), pending)
	buf = buf[:n]
	if n == 0 {
		return buf, nil
	}
	if err := d.readRaw(RegBufferOut, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Pending returns the number of bytes waiting in the FIFO.
func (d *Device) Pending() (int, error) {
	var remaining BytesRemaining
	if err := d.ReadReg(&remaining); err != nil {
		return 0, err
	}
	return int(remaining), nil
}

// FlushFIFO discards FIFO content (FlushAll) or one sensor's records
// (FlushSensor).
func (d *Device) FlushFIFO(f FifoFlush) error { return d.WriteReg(f) }
