// Copyright (c) 2020-2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package frame

import "github.com/thvdveld/dot15d4/octet"

// MLME sub-IE sub-IDs (§4.3). Short-form sub-IEs (descriptor bit 15
// clear) use a 7-bit sub-ID; long-form sub-IEs (bit 15 set) use a
// 4-bit sub-ID and exist for content too large for the short form's
// 8-bit length. TSCH's own sub-IEs all fit short form; Channel
// Hopping needs long form once it carries an explicit sequence.
const (
	mlmeSubIDTSCHSynchronization   uint8 = 0x1a // short form
	mlmeSubIDTSCHSlotframeAndLink uint8 = 0x1b // short form
	mlmeSubIDTSCHTimeslot          uint8 = 0x1c // short form
	mlmeSubIDChannelHopping        uint8 = 0x09 // long form
)

// MLMESubIE is a single decoded nested MLME sub-IE: sub-ID, whether it
// used the long descriptor form, and its raw content.
type MLMESubIE struct {
	SubID   uint8
	Long    bool
	Content []byte
}

// decodeMLMESubIEDescriptor decodes a 2-octet nested sub-IE
// descriptor. Short form: length:8 | subID:7 | type=0:1 (bit15).
// Long form: length:11 | subID:4 | type=1:1 (bit15).
func decodeMLMESubIEDescriptor(v uint16) (subID uint8, length int, long bool) {
	long = v&0x8000 != 0
	if long {
		subID = uint8((v >> 11) & 0x0F)
		length = int(v & 0x7FF)
		return
	}
	subID = uint8((v >> 8) & 0x7F)
	length = int(v & 0xFF)
	return
}

// MLMESubIEChain lazily decodes the nested sub-IE chain carried inside
// a Payload IE with ID PayloadIEIDMLME.
type MLMESubIEChain struct {
	r *octet.Reader
}

// DecodeMLME begins lazy iteration over the nested MLME sub-IE chain
// in content (typically a PayloadIE.Content).
func DecodeMLME(content []byte) *MLMESubIEChain {
	return &MLMESubIEChain{r: octet.NewReader(content)}
}

// Next returns the next nested sub-IE, or ok=false once exhausted.
func (c *MLMESubIEChain) Next() (MLMESubIE, bool, error) {
	if c.r.Len() < 2 {
		return MLMESubIE{}, false, nil
	}
	v, err := c.r.U16()
	if err != nil {
		return MLMESubIE{}, false, malformed("MLME sub-IE descriptor: %v", err)
	}
	subID, length, long := decodeMLMESubIEDescriptor(v)
	content, err := c.r.Bytes(length)
	if err != nil {
		return MLMESubIE{}, false, malformed("MLME sub-IE 0x%02x content: %v", subID, err)
	}
	return MLMESubIE{SubID: subID, Long: long, Content: content}, true, nil
}

func encodeMLMESubIE(w *octet.Writer, ie MLMESubIE) error {
	if ie.Long {
		if len(ie.Content) > 0x7FF {
			return malformed("MLME sub-IE 0x%02x content too long: %d", ie.SubID, len(ie.Content))
		}
		v := uint16(len(ie.Content))&0x7FF | uint16(ie.SubID)<<11 | 0x8000
		if err := w.PutU16(v); err != nil {
			return err
		}
		return w.PutBytes(ie.Content)
	}
	if len(ie.Content) > 0xFF {
		return malformed("MLME sub-IE 0x%02x content too long: %d", ie.SubID, len(ie.Content))
	}
	v := uint16(len(ie.Content)) & 0xFF | uint16(ie.SubID)<<8
	if err := w.PutU16(v); err != nil {
		return err
	}
	return w.PutBytes(ie.Content)
}

// TSCHSynchronization is the decoded content of the TSCH
// Synchronization sub-IE: the sender's current Absolute Slot Number
// and join metric (hop count from the PAN coordinator).
type TSCHSynchronization struct {
	ASN         ASN
	JoinMetric uint8
}

// ASN is the 40-bit TSCH Absolute Slot Number, carried on the wire as
// 5 little-endian octets.
type ASN uint64

func decodeTSCHSynchronization(content []byte) (TSCHSynchronization, error) {
	if len(content) != 6 {
		return TSCHSynchronization{}, malformed("TSCH synchronization IE: want 6 octets, got %d", len(content))
	}
	asn := uint64(content[0]) | uint64(content[1])<<8 | uint64(content[2])<<16 |
		uint64(content[3])<<24 | uint64(content[4])<<32
	return TSCHSynchronization{ASN: ASN(asn), JoinMetric: content[5]}, nil
}

func encodeTSCHSynchronization(s TSCHSynchronization) []byte {
	v := uint64(s.ASN)
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(v >> 32),
		s.JoinMetric,
	}
}

// TSCHTimeslot is the decoded content of the TSCH Timeslot IE. A
// 1-octet encoding carries only TemplateID, meaning "use the default
// timeslot timing template"; Explicit is false in that case and the
// timing fields are zero. An explicit (25-octet) encoding sets
// Explicit true and populates the timing fields, all in microseconds.
type TSCHTimeslot struct {
	TemplateID uint8
	Explicit   bool

	CCAOffset      uint16
	CCA            uint16
	TxOffset       uint16
	RxOffset       uint16
	RxAckDelay     uint16
	TxAckDelay     uint16
	RxWait         uint16
	AckWait        uint16
	RxTxTransition uint16
	MaxAck         uint16
	MaxTx          uint16
	TimeslotLength uint16
}

func decodeTSCHTimeslot(content []byte) (TSCHTimeslot, error) {
	if len(content) == 1 {
		return TSCHTimeslot{TemplateID: content[0]}, nil
	}
	if len(content) != 25 {
		return TSCHTimeslot{}, malformed("TSCH timeslot IE: want 1 or 25 octets, got %d", len(content))
	}
	r := octet.NewReader(content)
	id, _ := r.U8()
	fields := make([]uint16, 12)
	for i := range fields {
		v, err := r.U16()
		if err != nil {
			return TSCHTimeslot{}, malformed("TSCH timeslot IE field %d: %v", i, err)
		}
		fields[i] = v
	}
	return TSCHTimeslot{
		TemplateID:     id,
		Explicit:       true,
		CCAOffset:      fields[0],
		CCA:            fields[1],
		TxOffset:       fields[2],
		RxOffset:       fields[3],
		RxAckDelay:     fields[4],
		TxAckDelay:     fields[5],
		RxWait:         fields[6],
		AckWait:        fields[7],
		RxTxTransition: fields[8],
		MaxAck:         fields[9],
		MaxTx:          fields[10],
		TimeslotLength: fields[11],
	}, nil
}

func encodeTSCHTimeslot(t TSCHTimeslot) []byte {
	if !t.Explicit {
		return []byte{t.TemplateID}
	}
	w := octet.NewWriter(make([]byte, 25))
	_ = w.PutU8(t.TemplateID)
	for _, v := range []uint16{
		t.CCAOffset, t.CCA, t.TxOffset, t.RxOffset, t.RxAckDelay, t.TxAckDelay,
		t.RxWait, t.AckWait, t.RxTxTransition, t.MaxAck, t.MaxTx, t.TimeslotLength,
	} {
		_ = w.PutU16(v)
	}
	return w.Bytes()
}

// ChannelHopping is the decoded content of the Channel Hopping IE. The
// 1-octet form, SequenceID, references a hopping sequence known out of
// band (e.g. the default PHY-defined sequence); Raw carries the
// content verbatim for the explicit-sequence long form, which this
// codec does not itself interpret (§1 Non-goals: channel hopping
// sequence generation).
type ChannelHopping struct {
	SequenceID uint8
	Explicit   bool
	Raw        []byte
}

func decodeChannelHopping(content []byte) (ChannelHopping, error) {
	if len(content) == 1 {
		return ChannelHopping{SequenceID: content[0]}, nil
	}
	return ChannelHopping{Explicit: true, Raw: content}, nil
}

func encodeChannelHopping(c ChannelHopping) []byte {
	if !c.Explicit {
		return []byte{c.SequenceID}
	}
	return c.Raw
}

// TSCHLinkOption bits (§4.6/§4.7).
type TSCHLinkOption uint8

const (
	LinkOptionTX          TSCHLinkOption = 1 << 0
	LinkOptionRX          TSCHLinkOption = 1 << 1
	LinkOptionShared      TSCHLinkOption = 1 << 2
	LinkOptionTimekeeping TSCHLinkOption = 1 << 3
)

// TSCHLink is one link entry of a TSCH Slotframe and Link IE. Unlike
// the in-memory tsch.Link a MAC driver schedules against, the wire
// form carries no neighbor address: TSCH links are advertised per
// timeslot/channel-offset/option only, and the neighbor is resolved
// locally from upper-layer state (e.g. a routing table), not from this
// IE (IEEE 802.15.4-2020 §7.4.2.6).
type TSCHLink struct {
	Timeslot      uint16
	ChannelOffset uint16
	Options       TSCHLinkOption
}

// TSCHSlotframe is one slotframe entry of a TSCH Slotframe and Link IE.
type TSCHSlotframe struct {
	Handle uint8
	Size   uint16
	Links  []TSCHLink
}

// TSCHSlotframeAndLink is the decoded content of the TSCH Slotframe
// and Link IE.
type TSCHSlotframeAndLink struct {
	Slotframes []TSCHSlotframe
}

func decodeTSCHSlotframeAndLink(content []byte) (TSCHSlotframeAndLink, error) {
	r := octet.NewReader(content)
	n, err := r.U8()
	if err != nil {
		return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: num slotframes: %v", err)
	}
	out := TSCHSlotframeAndLink{Slotframes: make([]TSCHSlotframe, 0, n)}
	for i := 0; i < int(n); i++ {
		handle, err := r.U8()
		if err != nil {
			return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d handle: %v", i, err)
		}
		size, err := r.U16()
		if err != nil {
			return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d size: %v", i, err)
		}
		numLinks, err := r.U8()
		if err != nil {
			return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d num links: %v", i, err)
		}
		sf := TSCHSlotframe{Handle: handle, Size: size, Links: make([]TSCHLink, 0, numLinks)}
		for j := 0; j < int(numLinks); j++ {
			ts, err := r.U16()
			if err != nil {
				return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d link %d timeslot: %v", i, j, err)
			}
			chOff, err := r.U16()
			if err != nil {
				return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d link %d channel offset: %v", i, j, err)
			}
			opts, err := r.U8()
			if err != nil {
				return TSCHSlotframeAndLink{}, malformed("slotframe-and-link IE: slotframe %d link %d options: %v", i, j, err)
			}
			sf.Links = append(sf.Links, TSCHLink{Timeslot: ts, ChannelOffset: chOff, Options: TSCHLinkOption(opts)})
		}
		out.Slotframes = append(out.Slotframes, sf)
	}
	return out, nil
}

func encodeTSCHSlotframeAndLink(s TSCHSlotframeAndLink) ([]byte, error) {
	if len(s.Slotframes) > 0xFF {
		return nil, malformed("slotframe-and-link IE: too many slotframes: %d", len(s.Slotframes))
	}
	size := 1
	for _, sf := range s.Slotframes {
		size += 4 + 5*len(sf.Links)
	}
	w := octet.NewWriter(make([]byte, size))
	_ = w.PutU8(uint8(len(s.Slotframes)))
	for _, sf := range s.Slotframes {
		if len(sf.Links) > 0xFF {
			return nil, malformed("slotframe-and-link IE: slotframe %d: too many links: %d", sf.Handle, len(sf.Links))
		}
		_ = w.PutU8(sf.Handle)
		_ = w.PutU16(sf.Size)
		_ = w.PutU8(uint8(len(sf.Links)))
		for _, l := range sf.Links {
			_ = w.PutU16(l.Timeslot)
			_ = w.PutU16(l.ChannelOffset)
			_ = w.PutU8(uint8(l.Options))
		}
	}
	return w.Bytes(), nil
}
