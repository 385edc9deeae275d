// Package benchmarks compares record access through a mapped file with the
// same records stored in embedded key-value engines.
package benchmarks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Giulio2002/filemap"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// Cached benchmark database directory
const benchCacheDir = "testdata/benchdb"

// Record layout shared by every store: 8-byte big-endian key followed by a
// 32-byte value whose first 8 bytes are the key index.
const (
	keySize    = 8
	valSize    = 32
	recordSize = keySize + valSize
)

var (
	cacheMu  sync.Mutex
	files    = make(map[string]*filemap.ReadWrite)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs  = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func putRecord(rec []byte, i int) {
	binary.BigEndian.PutUint64(rec[:keySize], uint64(i))
	binary.BigEndian.PutUint64(rec[keySize:], uint64(i))
}

// getCachedRecordFile returns a cached read-write mapping of numKeys
// records, creating the file if needed. The file is grown with Resize and
// filled through the mapping.
func getCachedRecordFile(b *testing.B, numKeys int) *filemap.ReadWrite {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("records_%d", numKeys)
	path := filepath.Join(benchCacheDir, fmt.Sprintf("records_%d.dat", numKeys))

	if f, ok := files[key]; ok {
		return f
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	exists := fileExists(path)
	if !exists {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			b.Fatal(err)
		}
	}

	f, err := filemap.OpenReadWrite(path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists || f.Size() != numKeys*recordSize {
		b.Logf("Creating cached record file with %d keys...", numKeys)
		if err := f.Resize(int64(numKeys * recordSize)); err != nil {
			b.Fatal(err)
		}
		data := f.Bytes()
		for i := 0; i < numKeys; i++ {
			putRecord(data[i*recordSize:(i+1)*recordSize], i)
		}
		if err := f.Sync(); err != nil {
			b.Fatal(err)
		}
	} else {
		b.Logf("Using cached record file with %d keys", numKeys)
	}

	files[key] = f
	return f
}

// getCachedMdbx returns a cached mdbx environment holding numKeys records.
func getCachedMdbx(b *testing.B, numKeys int) *mdbxgo.Env {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("mdbx_%d", numKeys)
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_mdbx.db", numKeys))

	if env, ok := mdbxEnvs[key]; ok {
		return env
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	exists := fileExists(path)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbxgo.NewEnv(mdbxgo.Label("bench"))
	if err != nil {
		b.Fatal(err)
	}
	env.SetOption(mdbxgo.OptMaxDB, 10)
	env.SetGeometry(-1, -1, 1<<32, -1, -1, 4096) // 4GB max
	if err := env.Open(path, mdbxgo.NoSubdir|mdbxgo.NoMetaSync|mdbxgo.WriteMap, 0644); err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached mdbx DB with %d keys...", numKeys)
		populateMdbx(b, env, numKeys)
	} else {
		b.Logf("Using cached mdbx DB with %d keys", numKeys)
	}

	mdbxEnvs[key] = env
	return env
}

func populateMdbx(b *testing.B, env *mdbxgo.Env, numKeys int) {
	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	dbi, err := txn.OpenDBI("bench", mdbxgo.Create, nil, nil)
	if err != nil {
		b.Fatal(err)
	}

	batchSize := 100_000
	rec := make([]byte, recordSize)

	for i := 0; i < numKeys; i++ {
		putRecord(rec, i)
		if err := txn.Put(dbi, rec[:keySize], rec[keySize:], mdbxgo.Upsert); err != nil {
			b.Fatal(err)
		}

		if (i+1)%batchSize == 0 {
			if _, err := txn.Commit(); err != nil {
				b.Fatal(err)
			}
			txn, err = env.BeginTxn(nil, 0)
			if err != nil {
				b.Fatal(err)
			}
		}
	}

	if _, err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}

// getCachedBoltDB returns a cached BoltDB database holding numKeys records.
func getCachedBoltDB(b *testing.B, numKeys int) *bolt.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("bolt_%d", numKeys)
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bolt.db", numKeys))

	if db, ok := boltDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{
		NoSync:         true,
		NoFreelistSync: true,
	})
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached BoltDB with %d keys...", numKeys)
		populateBolt(b, db, numKeys)
	} else {
		b.Logf("Using cached BoltDB with %d keys", numKeys)
	}

	boltDBs[key] = db
	return db
}

func populateBolt(b *testing.B, db *bolt.DB, numKeys int) {
	batchSize := 100_000
	rec := make([]byte, recordSize)

	for start := 0; start < numKeys; start += batchSize {
		end := min(start+batchSize, numKeys)
		err := db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte("bench"))
			if err != nil {
				return err
			}
			for i := start; i < end; i++ {
				putRecord(rec, i)
				if err := bucket.Put(rec[:keySize], rec[keySize:]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// getCachedRocksDB returns a cached RocksDB database holding numKeys records.
func getCachedRocksDB(b *testing.B, numKeys int) *gorocksdb.DB {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := fmt.Sprintf("rocks_%d", numKeys)
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_rocks.db", numKeys))

	if db, ok := rocksDBs[key]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	exists := fileExists(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(64 * 1024 * 1024) // 64MB write buffer
	opts.SetMaxWriteBufferNumber(3)
	opts.SetTargetFileSizeBase(64 * 1024 * 1024)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		b.Logf("Creating cached RocksDB with %d keys...", numKeys)
		populateRocksDB(b, db, numKeys)
	} else {
		b.Logf("Using cached RocksDB with %d keys", numKeys)
	}

	rocksDBs[key] = db
	return db
}

func populateRocksDB(b *testing.B, db *gorocksdb.DB, numKeys int) {
	wo := gorocksdb.NewDefaultWriteOptions()
	defer wo.Destroy()

	batch := gorocksdb.NewWriteBatch()
	defer batch.Destroy()

	batchSize := 100_000
	rec := make([]byte, recordSize)

	for i := 0; i < numKeys; i++ {
		putRecord(rec, i)
		batch.Put(rec[:keySize], rec[keySize:])

		if (i+1)%batchSize == 0 {
			if err := db.Write(wo, batch); err != nil {
				b.Fatal(err)
			}
			batch.Clear()
		}
	}

	if batch.Count() > 0 {
		if err := db.Write(wo, batch); err != nil {
			b.Fatal(err)
		}
	}
}

// CleanupBenchCache closes all cached handles.
// Call this in TestMain or after benchmarks complete.
func CleanupBenchCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	for _, f := range files {
		f.Close()
	}
	for _, env := range mdbxEnvs {
		env.Close()
	}
	for _, db := range boltDBs {
		db.Close()
	}
	for _, db := range rocksDBs {
		db.Close()
	}
	files = make(map[string]*filemap.ReadWrite)
	mdbxEnvs = make(map[string]*mdbxgo.Env)
	boltDBs = make(map[string]*bolt.DB)
	rocksDBs = make(map[string]*gorocksdb.DB)
}

// DeleteBenchCache removes all cached database files.
func DeleteBenchCache() error {
	return os.RemoveAll(benchCacheDir)
}
