package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteVecExtension(t *testing.T) {
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var version string
	require.NoError(t, db.QueryRow("SELECT vec_version()").Scan(&version))
	assert.NotEmpty(t, version)
}

func TestVec0NearestNeighbours(t *testing.T) {
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE VIRTUAL TABLE items USING vec0(embedding float[2])`)
	require.NoError(t, err)

	for id, vec := range map[int64][]float32{1: {1, 0}, 2: {0, 1}, 3: {0.6, 0.8}} {
		blob, err := SerializeVector(vec)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO items (rowid, embedding) VALUES (?, ?)`, id, blob)
		require.NoError(t, err)
	}

	query, err := SerializeVector([]float32{1, 0})
	require.NoError(t, err)
	rows, err := db.Query(`SELECT rowid, distance FROM items WHERE embedding MATCH ? AND k = ? ORDER BY distance`, query, 2)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	var distances []float64
	for rows.Next() {
		var id int64
		var d float64
		require.NoError(t, rows.Scan(&id, &d))
		ids = append(ids, id)
		distances = append(distances, d)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []int64{1, 3}, ids)
	assert.InDelta(t, 0.0, distances[0], 1e-6)
	assert.InDelta(t, 0.894, distances[1], 1e-3)
}
