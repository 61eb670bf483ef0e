package parquetutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Number int64  `parquet:"name=number, type=INT64"`
	Name   string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func TestWriteAllReadAll(t *testing.T) {
	records := []testRecord{
		{Number: 1, Name: "first"},
		{Number: 2, Name: "second"},
		{Number: 3, Name: ""},
	}

	data, err := WriteAll(records)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "PAR1", string(data[:4]))

	actual, err := ReadAll[testRecord](NewBufferFile(data))
	require.NoError(t, err)
	assert.Equal(t, records, actual)
}

func TestReadAllInvalidFile(t *testing.T) {
	_, err := ReadAll[testRecord](NewBufferFile([]byte("not a parquet file")))
	assert.Error(t, err)
}
