// Package catalog maps public resource names to files under a root
// directory. It backs the file delivery endpoint and offers whole-file
// read, write and list operations on any afero filesystem.
package catalog
