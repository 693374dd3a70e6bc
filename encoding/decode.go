// Package encoding reads fixed-layout binary records, such as object file
// relocation and symbol entries, honoring the record's byte order. Decode
// plans are compiled per type once and cached.
package encoding

import (
	"encoding/binary"
	"io"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

type handler func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer)

type handlerData struct {
	handler handler
	size    int
	align   int
}

var decodeProcess sync.Map

// Size returns the stored size of a record type: the sum of its field sizes
// with natural alignment padding.
func Size(val any) int {
	typ := reflect.TypeOf(val)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return getDecodeData(typ).size
}

// Read reads exactly one record from r into val, which must be a pointer to
// a fixed-layout value.
func Read(r io.Reader, order binary.ByteOrder, val any) error {
	typ := reflect.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		panic("encoding: Read target must be a pointer")
	}
	data := getDecodeData(typ.Elem())
	buf := make([]byte, data.size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	data.handler(order, buf, reflect2.PtrOf(val))
	return nil
}

func getDecodeData(typ reflect.Type) *handlerData {
	key := reflect2.Type2(typ).RType()
	if v, ok := decodeProcess.Load(key); ok {
		return v.(*handlerData)
	}
	data := decode(typ)
	decodeProcess.Store(key, data)
	return data
}

func decode(typ reflect.Type) *handlerData {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return &handlerData{func(_ binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
			*(*uint8)(ptr) = buf[0]
		}, 1, 1}
	case reflect.Int16, reflect.Uint16:
		return &handlerData{func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
			*(*uint16)(ptr) = order.Uint16(buf)
		}, 2, 2}
	case reflect.Int32, reflect.Uint32:
		return &handlerData{func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
			*(*uint32)(ptr) = order.Uint32(buf)
		}, 4, 4}
	case reflect.Int64, reflect.Uint64:
		return &handlerData{func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
			*(*uint64)(ptr) = order.Uint64(buf)
		}, 8, 8}
	case reflect.Array:
		return decodeArray(typ)
	case reflect.Struct:
		return decodeStruct(typ)
	}
	panic("encoding: unsupported type " + typ.String())
}

func decodeArray(typ reflect.Type) *handlerData {
	count := typ.Len()
	elem := decode(typ.Elem())
	stride := alignUp(elem.size, elem.align)
	memStride := typ.Elem().Size()
	return &handlerData{func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
		for i := 0; i < count; i++ {
			elem.handler(order, buf[i*stride:], unsafe.Add(ptr, uintptr(i)*memStride))
		}
	}, count * stride, elem.align}
}

type structData struct {
	handler handler
	offset  uintptr
	src     int
}

func decodeStruct(typ reflect.Type) *handlerData {
	count := typ.NumField()
	fields := make([]*structData, 0, count)
	var size, maxAlign int
	for i := 0; i < count; i++ {
		field := typ.Field(i)
		if field.Tag.Get("encoding") == "ignore" {
			continue
		}
		elem := decode(field.Type)
		src := alignUp(size, elem.align)
		fields = append(fields, &structData{elem.handler, field.Offset, src})
		size = src + elem.size
		maxAlign = max(maxAlign, elem.align)
	}
	size = alignUp(size, maxAlign)
	return &handlerData{func(order binary.ByteOrder, buf []byte, ptr unsafe.Pointer) {
		for _, data := range fields {
			data.handler(order, buf[data.src:], unsafe.Add(ptr, data.offset))
		}
	}, size, maxAlign}
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
