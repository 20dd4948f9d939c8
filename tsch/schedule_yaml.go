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

package tsch

import (
	"github.com/pkg/errors"
	"github.com/thvdveld/dot15d4/frame"
	"gopkg.in/yaml.v3"
)

// scheduleDoc is the YAML shape LoadSchedule accepts: a flat,
// hand-authored document rather than a generic config schema.
type scheduleDoc struct {
	Slotframe struct {
		Handle uint8 `yaml:"handle"`
		Size   uint16 `yaml:"size"`
		Links  []struct {
			Timeslot      uint16   `yaml:"timeslot"`
			ChannelOffset uint16   `yaml:"channel_offset"`
			Options       []string `yaml:"options"`
			Neighbor      string   `yaml:"neighbor"` // "broadcast" or a hex short address like "0x1234"
		} `yaml:"links"`
	} `yaml:"slotframe"`
	Hopping  []uint8 `yaml:"hopping_sequence"`
	Timeslot struct {
		TemplateID     uint8  `yaml:"template_id"`
		Explicit       bool   `yaml:"explicit"`
		CCAOffset      uint16 `yaml:"cca_offset"`
		CCA            uint16 `yaml:"cca"`
		TxOffset       uint16 `yaml:"tx_offset"`
		RxOffset       uint16 `yaml:"rx_offset"`
		RxAckDelay     uint16 `yaml:"rx_ack_delay"`
		TxAckDelay     uint16 `yaml:"tx_ack_delay"`
		RxWait         uint16 `yaml:"rx_wait"`
		AckWait        uint16 `yaml:"ack_wait"`
		RxTxTransition uint16 `yaml:"rx_tx_transition"`
		MaxAck         uint16 `yaml:"max_ack"`
		MaxTx          uint16 `yaml:"max_tx"`
		TimeslotLength uint16 `yaml:"timeslot_length"`
	} `yaml:"timeslot"`
}

// Schedule is the parsed, ready-to-run result of LoadSchedule.
type Schedule struct {
	Slotframe Slotframe
	Hopping   HoppingSequence
	Template  Timeslot
}

var linkOptionNames = map[string]frame.TSCHLinkOption{
	"tx":          frame.LinkOptionTX,
	"rx":          frame.LinkOptionRX,
	"shared":      frame.LinkOptionShared,
	"timekeeping": frame.LinkOptionTimekeeping,
}

// LoadSchedule parses a declarative YAML schedule document into a
// Schedule, the load-time-only path to static TSCH configuration
// (never touched by the real-time slot loop). Neighbor addresses in
// the document are short addresses or the literal "broadcast"; an
// extended-address neighbor must be wired up programmatically after
// loading.
func LoadSchedule(doc []byte) (Schedule, error) {
	var d scheduleDoc
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return Schedule{}, errors.Wrap(err, "tsch: parsing schedule YAML")
	}

	sf := Slotframe{Handle: d.Slotframe.Handle, Size: d.Slotframe.Size}
	for _, l := range d.Slotframe.Links {
		var opts frame.TSCHLinkOption
		for _, name := range l.Options {
			opt, ok := linkOptionNames[name]
			if !ok {
				return Schedule{}, errors.Errorf("tsch: unknown link option %q", name)
			}
			opts |= opt
		}
		var neighbor frame.Address
		if l.Neighbor == "broadcast" || l.Neighbor == "" {
			neighbor = frame.ShortAddress(frame.BroadcastShortAddr)
		} else {
			addr, err := parseShortAddrHex(l.Neighbor)
			if err != nil {
				return Schedule{}, err
			}
			neighbor = frame.ShortAddress(addr)
		}
		sf.Links = append(sf.Links, Link{
			Timeslot:      l.Timeslot,
			ChannelOffset: l.ChannelOffset,
			Options:       opts,
			Neighbor:      neighbor,
		})
	}

	if len(d.Hopping) == 0 {
		return Schedule{}, errors.New("tsch: hopping_sequence must not be empty")
	}

	t := d.Timeslot
	template := Timeslot{
		TemplateID: t.TemplateID, Explicit: t.Explicit,
		CCAOffset: t.CCAOffset, CCA: t.CCA, TxOffset: t.TxOffset, RxOffset: t.RxOffset,
		RxAckDelay: t.RxAckDelay, TxAckDelay: t.TxAckDelay, RxWait: t.RxWait, AckWait: t.AckWait,
		RxTxTransition: t.RxTxTransition, MaxAck: t.MaxAck, MaxTx: t.MaxTx, TimeslotLength: t.TimeslotLength,
	}

	return Schedule{Slotframe: sf, Hopping: HoppingSequence(d.Hopping), Template: template}, nil
}

func parseShortAddrHex(s string) (frame.ShortAddr, error) {
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, errors.Errorf("tsch: neighbor %q is not a 0x-prefixed short address", s)
	}
	var v uint16
	for _, c := range s[2:] {
		var digit uint16
		switch {
		case c >= '0' && c <= '9':
			digit = uint16(c - '0')
		case c >= 'a' && c <= 'f':
			digit = uint16(c-'a') + 10
		case c >= 'A' && c <= 'F':
			digit = uint16(c-'A') + 10
		default:
			return 0, errors.Errorf("tsch: neighbor %q is not valid hex", s)
		}
		v = v<<4 | digit
	}
	return frame.ShortAddr(v), nil
}
