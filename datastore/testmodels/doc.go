// Package testmodels holds record types shared by tests across packages.
package testmodels
