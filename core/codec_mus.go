package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// CollectionInfo describes a collection as created by VectorIndex.Recreate.
type CollectionInfo struct {
	Name       string
	Dimensions int
	Metric     string
}

// PointRef is the compact form of an IndexedPoint kept by embedded indexes.
// The concept payload is stored once per distinct content under PayloadKey
// and joined back at search time.
type PointRef struct {
	CURIE         string
	PayloadKey    string
	EmbeddedLabel string
	Vector        []float32
}

// MUS serializers for the records persisted by the badger index.
var (
	PayloadMUS        = payloadMUS{}
	PointRefMUS       = pointRefMUS{}
	CollectionInfoMUS = collectionInfoMUS{}
	StringsMUS        = stringsMUS{}
	VectorMUS         = vectorMUS{}
)

type stringsMUS struct{}

func (stringsMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func (stringsMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	if length > uint64(len(bs)-n) {
		err = ErrTruncated
		return
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (stringsMUS) Size(v []string) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	// Raw float32 values take exactly four bytes each.
	if length*4 > uint64(len(bs)-n) {
		err = ErrTruncated
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

type payloadMUS struct{}

func (payloadMUS) Marshal(v Payload, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Label, bs[n:])
	n += StringsMUS.Marshal(v.Synonyms, bs[n:])
	n += StringsMUS.Marshal(v.Types, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.EmbeddedLabel, bs[n:])
	return
}

func (payloadMUS) Unmarshal(bs []byte) (v Payload, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Label, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Synonyms, n1, err = StringsMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Types, n1, err = StringsMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.EmbeddedLabel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (payloadMUS) Size(v Payload) (size int) {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Label) +
		StringsMUS.Size(v.Synonyms) +
		StringsMUS.Size(v.Types) +
		ord.String.Size(v.Category) +
		ord.String.Size(v.EmbeddedLabel)
}

type pointRefMUS struct{}

func (pointRefMUS) Marshal(v PointRef, bs []byte) (n int) {
	n = ord.String.Marshal(v.CURIE, bs)
	n += ord.String.Marshal(v.PayloadKey, bs[n:])
	n += ord.String.Marshal(v.EmbeddedLabel, bs[n:])
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	return
}

func (pointRefMUS) Unmarshal(bs []byte) (v PointRef, n int, err error) {
	var n1 int
	if v.CURIE, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.PayloadKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.EmbeddedLabel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (pointRefMUS) Size(v PointRef) (size int) {
	return ord.String.Size(v.CURIE) +
		ord.String.Size(v.PayloadKey) +
		ord.String.Size(v.EmbeddedLabel) +
		VectorMUS.Size(v.Vector)
}

type collectionInfoMUS struct{}

func (collectionInfoMUS) Marshal(v CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Uint64.Marshal(uint64(v.Dimensions), bs[n:])
	n += ord.String.Marshal(v.Metric, bs[n:])
	return
}

func (collectionInfoMUS) Unmarshal(bs []byte) (v CollectionInfo, n int, err error) {
	var (
		n1   int
		dims uint64
	)
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if dims, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.Dimensions = int(dims)
	v.Metric, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (collectionInfoMUS) Size(v CollectionInfo) (size int) {
	return ord.String.Size(v.Name) +
		varint.Uint64.Size(uint64(v.Dimensions)) +
		ord.String.Size(v.Metric)
}
