package registry

import (
	"testing"

	"github.com/dilshat/wa-sender/model"
	"github.com/stretchr/testify/require"
)

const (
	PHONE1 = "525512345678"
	PHONE2 = "525587654321"
)

func TestRegistry_Add(t *testing.T) {
	reg := NewRegistry()

	err := reg.Add(model.Contact{Phone: PHONE1, Name: "Ana"})

	require.NoError(t, err)
	require.Equal(t, 1, reg.PendingCount())
	require.Equal(t, model.PENDING, reg.All()[0].Status)
}

func TestRegistry_AddDuplicate(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1})

	err := reg.Add(model.Contact{Phone: PHONE1, Name: "other"})

	require.Error(t, err)
	require.IsType(t, &DuplicateContactErr{}, err)
	require.Equal(t, 1, len(reg.All()))
}

func TestRegistry_Order(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1})
	_ = reg.Add(model.Contact{Phone: PHONE2})

	all := reg.All()

	require.Equal(t, PHONE1, all[0].Phone)
	require.Equal(t, PHONE2, all[1].Phone)
}

func TestRegistry_SetStatus(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1})

	ok := reg.SetStatus(PHONE1, model.FAILED, "NAVIGATION_TIMEOUT")

	require.True(t, ok)
	require.Equal(t, 0, reg.PendingCount())
	require.Equal(t, model.FAILED, reg.All()[0].Status)
	require.Equal(t, "NAVIGATION_TIMEOUT", reg.All()[0].Category)

	require.False(t, reg.SetStatus("unknown", model.SENT, ""))
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(model.Contact{Phone: PHONE1})
	_ = reg.Add(model.Contact{Phone: PHONE2})

	reg.Clear()

	require.Empty(t, reg.All())
	require.Equal(t, 0, reg.PendingCount())

	//phones are free again after a clear
	require.NoError(t, reg.Add(model.Contact{Phone: PHONE1}))
}
