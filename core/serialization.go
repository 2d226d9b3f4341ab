package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

// MUS serializers for stored graph records. Fields are written in
// declaration order; adding a field changes the stored layout.
var (
	IDMUS           mus.Serializer[ID]           = idMUS{}
	EntityMUS       mus.Serializer[Entity]       = entityMUS{}
	RelationshipMUS mus.Serializer[Relationship] = relationshipMUS{}

	stringsMUS mus.Serializer[[]string]  = nilableSliceMUS[string]{ord.NewSliceSer[string](ord.String)}
	vectorMUS  mus.Serializer[[]float32] = nilableSliceMUS[float32]{ord.NewSliceSer[float32](raw.Float32)}
	timeMUS    mus.Serializer[time.Time] = optionalTimeMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return raw.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := raw.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return raw.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return raw.Uint64.Skip(bs)
}

// nilableSliceMUS prefixes a slice with a nil flag so nil and empty
// slices survive a round trip unchanged.
type nilableSliceMUS[T any] struct {
	elems mus.Serializer[[]T]
}

func (s nilableSliceMUS[T]) Marshal(v []T, bs []byte) (n int) {
	n = ord.Bool.Marshal(v == nil, bs)
	if v == nil {
		return
	}
	return n + s.elems.Marshal(v, bs[n:])
}

func (s nilableSliceMUS[T]) Unmarshal(bs []byte) (v []T, n int, err error) {
	isNil, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || isNil {
		return
	}
	v, n1, err := s.elems.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (s nilableSliceMUS[T]) Size(v []T) (size int) {
	size = ord.Bool.Size(v == nil)
	if v == nil {
		return
	}
	return size + s.elems.Size(v)
}

func (s nilableSliceMUS[T]) Skip(bs []byte) (n int, err error) {
	isNil, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || isNil {
		return
	}
	n1, err := s.elems.Skip(bs[n:])
	return n + n1, err
}

// optionalTimeMUS stores the zero time as a single flag byte, since it has
// no representation in Unix nanoseconds.
type optionalTimeMUS struct{}

func (s optionalTimeMUS) Marshal(v time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(v.IsZero(), bs)
	if v.IsZero() {
		return
	}
	return n + raw.TimeUnixNanoUTC.Marshal(v, bs[n:])
}

func (s optionalTimeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	isZero, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || isZero {
		return
	}
	v, n1, err := raw.TimeUnixNanoUTC.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (s optionalTimeMUS) Size(v time.Time) (size int) {
	size = ord.Bool.Size(v.IsZero())
	if v.IsZero() {
		return
	}
	return size + raw.TimeUnixNanoUTC.Size(v)
}

func (s optionalTimeMUS) Skip(bs []byte) (n int, err error) {
	isZero, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || isZero {
		return
	}
	n1, err := raw.TimeUnixNanoUTC.Skip(bs[n:])
	return n + n1, err
}

type entityMUS struct{}

func (s entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Type, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += stringsMUS.Marshal(v.SourceChunks, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Type, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceChunks, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s entityMUS) Size(v Entity) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Type)
	size += ord.String.Size(v.Description)
	size += stringsMUS.Size(v.SourceChunks)
	size += vectorMUS.Size(v.Vector)
	size += timeMUS.Size(v.InsertedAt)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s entityMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, skip := range []func([]byte) (int, error){
		ord.String.Skip,
		ord.String.Skip,
		ord.String.Skip,
		stringsMUS.Skip,
		vectorMUS.Skip,
		timeMUS.Skip,
		timeMUS.Skip,
	} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type relationshipMUS struct{}

func (s relationshipMUS) Marshal(v Relationship, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.SourceId, bs[n:])
	n += IDMUS.Marshal(v.TargetId, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.Target, bs[n:])
	n += stringsMUS.Marshal(v.Keywords, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += raw.Float64.Marshal(v.Weight, bs[n:])
	n += stringsMUS.Marshal(v.SourceChunks, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s relationshipMUS) Unmarshal(bs []byte) (v Relationship, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.SourceId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TargetId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Target, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Keywords, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Weight, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceChunks, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s relationshipMUS) Size(v Relationship) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.SourceId)
	size += IDMUS.Size(v.TargetId)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.Target)
	size += stringsMUS.Size(v.Keywords)
	size += ord.String.Size(v.Description)
	size += raw.Float64.Size(v.Weight)
	size += stringsMUS.Size(v.SourceChunks)
	size += timeMUS.Size(v.InsertedAt)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s relationshipMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for _, skip := range []func([]byte) (int, error){
		IDMUS.Skip,
		IDMUS.Skip,
		IDMUS.Skip,
		ord.String.Skip,
		ord.String.Skip,
		stringsMUS.Skip,
		ord.String.Skip,
		raw.Float64.Skip,
		stringsMUS.Skip,
		timeMUS.Skip,
		timeMUS.Skip,
	} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
