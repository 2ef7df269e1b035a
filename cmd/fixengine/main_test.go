package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/fixengine/session"
)

func TestStoreFileNameIsFilesystemSafe(t *testing.T) {
	id := session.ID{
		BeginString:  "FIX.4.2",
		SenderCompID: "SERVER",
		TargetCompID: "CLIENT",
	}
	name := storeFileName(id)
	require.NotContains(t, name, "/")
	require.NotContains(t, name, ":")
	require.NotContains(t, name, ">")
}

func TestLoadDictionaryFallsBackToEmpty(t *testing.T) {
	dd, err := loadDictionary("", "")
	require.NoError(t, err)
	require.NotNil(t, dd)
}
