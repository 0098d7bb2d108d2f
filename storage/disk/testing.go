package disk

import (
	"io/ioutil"
	"os"
)

// DiskManagerTest wraps a DiskManagerImpl backed by a temp file and removes
// it on ShutDown, for tests that want real file-system behavior without
// leaking files.
type DiskManagerTest struct {
	path string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager instance for testing purposes
func NewDiskManagerTest() DiskManager {
	f, err := ioutil.TempFile("", "*.db")
	if err != nil {
		panic(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	diskManager := NewDiskManagerImpl(path)
	return &DiskManagerTest{path, diskManager}
}

// ShutDown closes and removes the database and log files.
func (d *DiskManagerTest) ShutDown() {
	defer os.Remove(d.path)
	defer os.Remove(d.path[:len(d.path)-len(".db")] + ".log")
	d.DiskManager.ShutDown()
}
